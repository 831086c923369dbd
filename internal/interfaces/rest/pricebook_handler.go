package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/relaycrm/backend/internal/application/services"
)

type PriceBookHandler struct {
	svcMgr *services.ServiceManager
}

func NewPriceBookHandler(svcMgr *services.ServiceManager) *PriceBookHandler {
	return &PriceBookHandler{svcMgr: svcMgr}
}

// CreateBook handles POST /api/pricebooks
func (h *PriceBookHandler) CreateBook(c *gin.Context) {
	user := GetUserFromContext(c)

	var req struct {
		Name string `json:"name"`
	}
	if !BindJSON(c, &req) {
		return
	}

	HandleCreateEnvelope(c, "price_book", "Price book created", func() (interface{}, error) {
		return h.svcMgr.PriceBooks.CreateBook(c.Request.Context(), user, req.Name)
	})
}

// GetBook handles GET /api/pricebooks/:id
func (h *PriceBookHandler) GetBook(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleGetEnvelope(c, "price_book", func() (interface{}, error) {
		return h.svcMgr.PriceBooks.GetBook(c.Request.Context(), user, c.Param("id"))
	})
}

// GetBooks handles GET /api/pricebooks
func (h *PriceBookHandler) GetBooks(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleGetEnvelope(c, "price_books", func() (interface{}, error) {
		return h.svcMgr.PriceBooks.ListBooks(c.Request.Context(), user)
	})
}

// CreateEntry handles POST /api/pricebooks/:id/entries
func (h *PriceBookHandler) CreateEntry(c *gin.Context) {
	user := GetUserFromContext(c)

	var req struct {
		ProductCode string  `json:"product_code"`
		ProductName string  `json:"product_name"`
		UnitPrice   float64 `json:"unit_price"`
		Currency    string  `json:"currency"`
	}
	if !BindJSON(c, &req) {
		return
	}

	HandleCreateEnvelope(c, "entry", "Price book entry created", func() (interface{}, error) {
		return h.svcMgr.PriceBooks.CreateEntry(c.Request.Context(), user, services.EntryInput{
			PriceBookID: c.Param("id"),
			ProductCode: req.ProductCode,
			ProductName: req.ProductName,
			UnitPrice:   req.UnitPrice,
			Currency:    req.Currency,
		})
	})
}

// GetEntries handles GET /api/pricebooks/:id/entries
func (h *PriceBookHandler) GetEntries(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleGetEnvelope(c, "entries", func() (interface{}, error) {
		return h.svcMgr.PriceBooks.ListEntries(c.Request.Context(), user, c.Param("id"))
	})
}

// UpdateEntry handles PUT /api/pricebooks/entries/:entryId
func (h *PriceBookHandler) UpdateEntry(c *gin.Context) {
	user := GetUserFromContext(c)

	var updates map[string]interface{}
	if !BindJSON(c, &updates) {
		return
	}

	HandleUpdateEnvelope(c, "entry", "Price book entry updated", func() (interface{}, error) {
		return h.svcMgr.PriceBooks.UpdateEntry(c.Request.Context(), user, c.Param("entryId"), updates)
	})
}
