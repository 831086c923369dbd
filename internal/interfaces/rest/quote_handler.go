package rest

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/relaycrm/backend/internal/application/services"
)

type QuoteHandler struct {
	svcMgr *services.ServiceManager
}

func NewQuoteHandler(svcMgr *services.ServiceManager) *QuoteHandler {
	return &QuoteHandler{svcMgr: svcMgr}
}

type quoteLineRequest struct {
	EntryID  string `json:"entry_id"`
	Quantity int    `json:"quantity"`
}

func toLineInputs(lines []quoteLineRequest) []services.LineInput {
	inputs := make([]services.LineInput, 0, len(lines))
	for _, l := range lines {
		inputs = append(inputs, services.LineInput{EntryID: l.EntryID, Quantity: l.Quantity})
	}
	return inputs
}

// CreateQuote handles POST /api/quotes
func (h *QuoteHandler) CreateQuote(c *gin.Context) {
	user := GetUserFromContext(c)

	var req struct {
		OpportunityID string             `json:"opportunity_id"`
		PriceBookID   string             `json:"price_book_id"`
		Name          string             `json:"name"`
		DiscountPct   float64            `json:"discount_pct"`
		ExpiresOn     *time.Time         `json:"expires_on"`
		Lines         []quoteLineRequest `json:"lines"`
	}
	if !BindJSON(c, &req) {
		return
	}

	HandleCreateEnvelope(c, "quote", "Quote created", func() (interface{}, error) {
		return h.svcMgr.Quotes.Create(c.Request.Context(), user, services.QuoteInput{
			OpportunityID: req.OpportunityID,
			PriceBookID:   req.PriceBookID,
			Name:          req.Name,
			DiscountPct:   req.DiscountPct,
			ExpiresOn:     req.ExpiresOn,
			Lines:         toLineInputs(req.Lines),
		})
	})
}

// GetQuote handles GET /api/quotes/:id
func (h *QuoteHandler) GetQuote(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleGetEnvelope(c, "quote", func() (interface{}, error) {
		return h.svcMgr.Quotes.Get(c.Request.Context(), user, c.Param("id"))
	})
}

// RepriceQuote handles PUT /api/quotes/:id/lines
func (h *QuoteHandler) RepriceQuote(c *gin.Context) {
	user := GetUserFromContext(c)

	var req struct {
		DiscountPct float64            `json:"discount_pct"`
		Lines       []quoteLineRequest `json:"lines"`
	}
	if !BindJSON(c, &req) {
		return
	}

	HandleUpdateEnvelope(c, "quote", "Quote repriced", func() (interface{}, error) {
		return h.svcMgr.Quotes.Reprice(c.Request.Context(), user, c.Param("id"),
			req.DiscountPct, toLineInputs(req.Lines))
	})
}

// SubmitQuote handles POST /api/quotes/:id/submit
func (h *QuoteHandler) SubmitQuote(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleUpdateEnvelope(c, "quote", "Quote submitted", func() (interface{}, error) {
		return h.svcMgr.Quotes.Submit(c.Request.Context(), user, c.Param("id"))
	})
}

// PresentQuote handles POST /api/quotes/:id/present
func (h *QuoteHandler) PresentQuote(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleUpdateEnvelope(c, "quote", "Quote presented", func() (interface{}, error) {
		return h.svcMgr.Quotes.Present(c.Request.Context(), user, c.Param("id"))
	})
}

// AcceptQuote handles POST /api/quotes/:id/accept
func (h *QuoteHandler) AcceptQuote(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleUpdateEnvelope(c, "quote", "Quote accepted", func() (interface{}, error) {
		return h.svcMgr.Quotes.Accept(c.Request.Context(), user, c.Param("id"))
	})
}

// ReworkQuote handles POST /api/quotes/:id/rework
func (h *QuoteHandler) ReworkQuote(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleUpdateEnvelope(c, "quote", "Quote reopened for rework", func() (interface{}, error) {
		return h.svcMgr.Quotes.Rework(c.Request.Context(), user, c.Param("id"))
	})
}
