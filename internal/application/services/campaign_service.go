package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/relaycrm/backend/internal/domain/events"
	"github.com/relaycrm/backend/internal/domain/models"
	"github.com/relaycrm/backend/internal/infrastructure/database"
	"github.com/relaycrm/backend/internal/infrastructure/persistence"
	apperrors "github.com/relaycrm/backend/pkg/errors"
	"github.com/relaycrm/backend/pkg/ics"
	"github.com/relaycrm/backend/pkg/utils"
)

// CampaignService runs event campaigns: membership, calendar invitations
// and RSVP ingestion
type CampaignService struct {
	db        *database.Connection
	campaigns *persistence.CampaignRepository
	leads     *persistence.LeadRepository
	contacts  *persistence.ContactRepository
	users     *persistence.UserRepository
	txManager *persistence.TransactionManager
	outbox    *OutboxService
	emails    *EmailService
}

// NewCampaignService creates a new CampaignService
func NewCampaignService(db *database.Connection, txManager *persistence.TransactionManager,
	outbox *OutboxService, emails *EmailService) *CampaignService {
	return &CampaignService{
		db:        db,
		campaigns: persistence.NewCampaignRepository(db.DB()),
		leads:     persistence.NewLeadRepository(db.DB()),
		contacts:  persistence.NewContactRepository(db.DB()),
		users:     persistence.NewUserRepository(db.DB()),
		txManager: txManager,
		outbox:    outbox,
		emails:    emails,
	}
}

// CampaignInput carries the writable campaign fields
type CampaignInput struct {
	Name      string
	Type      string
	StartDate *time.Time
	EndDate   *time.Time
	Budget    float64
	Location  string
}

// Create inserts a planned campaign
func (s *CampaignService) Create(ctx context.Context, actor *models.UserSession, input CampaignInput) (*models.Campaign, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.NewValidationError("name", "campaign name is required")
	}
	if input.StartDate != nil && input.EndDate != nil && input.EndDate.Before(*input.StartDate) {
		return nil, apperrors.NewValidationError("end_date", "campaign cannot end before it starts")
	}

	campaign := &models.Campaign{
		ID:        utils.GenerateID(),
		OrgID:     actor.OrgID,
		OwnerID:   actor.ID,
		Name:      input.Name,
		Type:      input.Type,
		Status:    models.CampaignStatusPlanned,
		StartDate: input.StartDate,
		EndDate:   input.EndDate,
		Budget:    input.Budget,
		Location:  input.Location,
	}
	if err := s.campaigns.Create(ctx, s.db, campaign); err != nil {
		return nil, err
	}
	return campaign, nil
}

// Get fetches a campaign by ID
func (s *CampaignService) Get(ctx context.Context, actor *models.UserSession, id string) (*models.Campaign, error) {
	campaign, err := s.campaigns.FindByID(ctx, s.db, actor.OrgID, id)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, apperrors.NewNotFoundError("Campaign", id)
	}
	return campaign, nil
}

// List returns the org's campaigns
func (s *CampaignService) List(ctx context.Context, actor *models.UserSession, limit, offset int) ([]*models.Campaign, error) {
	return s.campaigns.FindAll(ctx, actor.OrgID, limit, offset)
}

// Update applies field changes to a campaign
func (s *CampaignService) Update(ctx context.Context, actor *models.UserSession, id string, updates map[string]interface{}) (*models.Campaign, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	if err := s.campaigns.Update(ctx, s.db, actor.OrgID, id, updates); err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, id)
}

// MemberInput identifies an invitee: exactly one of LeadID or ContactID
type MemberInput struct {
	LeadID    *string
	ContactID *string
}

// AddMember puts a lead or contact on the campaign. Duplicate emails on the
// same campaign are rejected.
func (s *CampaignService) AddMember(ctx context.Context, actor *models.UserSession, campaignID string, input MemberInput) (*models.CampaignMember, error) {
	if _, err := s.Get(ctx, actor, campaignID); err != nil {
		return nil, err
	}
	if (input.LeadID == nil) == (input.ContactID == nil) {
		return nil, apperrors.NewValidationError("member", "exactly one of lead_id or contact_id is required")
	}

	var addr string
	if input.LeadID != nil {
		lead, err := s.leads.FindByID(ctx, s.db, actor.OrgID, *input.LeadID)
		if err != nil {
			return nil, err
		}
		if lead == nil {
			return nil, apperrors.NewNotFoundError("Lead", *input.LeadID)
		}
		addr = lead.Email
	} else {
		contact, err := s.contacts.FindByID(ctx, s.db, actor.OrgID, *input.ContactID)
		if err != nil {
			return nil, err
		}
		if contact == nil {
			return nil, apperrors.NewNotFoundError("Contact", *input.ContactID)
		}
		addr = contact.Email
	}
	if addr == "" {
		return nil, apperrors.NewValidationError("email", "invitee has no email address")
	}
	addr = strings.ToLower(addr)

	exists, err := s.campaigns.MemberExists(ctx, actor.OrgID, campaignID, addr)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.NewConflictError("CampaignMember", "email", addr)
	}

	member := &models.CampaignMember{
		ID:         utils.GenerateID(),
		OrgID:      actor.OrgID,
		CampaignID: campaignID,
		LeadID:     input.LeadID,
		ContactID:  input.ContactID,
		Email:      addr,
		Status:     models.MemberStatusInvited,
	}
	if err := s.campaigns.AddMember(ctx, s.db, member); err != nil {
		return nil, err
	}
	return member, nil
}

// ListMembers returns campaign members, optionally filtered by status
func (s *CampaignService) ListMembers(ctx context.Context, actor *models.UserSession, campaignID, status string) ([]*models.CampaignMember, error) {
	if _, err := s.Get(ctx, actor, campaignID); err != nil {
		return nil, err
	}
	return s.campaigns.FindMembers(ctx, actor.OrgID, campaignID, status)
}

// SendInvites queues a calendar invitation for every invited member and
// moves the campaign In Progress. The member ID doubles as the calendar UID
// so replies route back without a lookup table.
func (s *CampaignService) SendInvites(ctx context.Context, actor *models.UserSession, campaignID string) (int, error) {
	campaign, err := s.Get(ctx, actor, campaignID)
	if err != nil {
		return 0, err
	}
	if campaign.StartDate == nil {
		return 0, apperrors.NewValidationError("start_date", "campaign needs a start date before inviting")
	}
	if campaign.Status != models.CampaignStatusPlanned && campaign.Status != models.CampaignStatusInProgress {
		return 0, apperrors.NewValidationError("status", "campaign is not accepting invitations")
	}

	members, err := s.campaigns.FindMembers(ctx, actor.OrgID, campaignID, models.MemberStatusInvited)
	if err != nil {
		return 0, err
	}
	if len(members) == 0 {
		return 0, nil
	}

	organizer, err := s.users.FindByID(ctx, actor.OrgID, campaign.OwnerID)
	if err != nil {
		return 0, err
	}
	if organizer == nil {
		organizer = &models.User{Name: actor.Name, Email: actor.Email}
	}

	end := campaign.StartDate.Add(time.Hour)
	if campaign.EndDate != nil {
		end = *campaign.EndDate
	}

	queued := 0
	err = s.txManager.WithTransaction(func(tx *sql.Tx) error {
		for _, m := range members {
			invite := ics.GenerateInvite(ics.Invite{
				UID:           m.ID,
				Summary:       campaign.Name,
				Description:   fmt.Sprintf("You are invited to %s", campaign.Name),
				Location:      campaign.Location,
				Start:         *campaign.StartDate,
				End:           end,
				OrganizerName: organizer.Name,
				OrganizerMail: organizer.Email,
				AttendeeMail:  m.Email,
			})

			_, err := s.emails.Queue(ctx, tx, actor.OrgID, QueueInput{
				ToAddress:   m.Email,
				Subject:     fmt.Sprintf("Invitation: %s", campaign.Name),
				Body:        fmt.Sprintf("Hi,\n\nYou are invited to %s.\n\nSee the attached calendar invitation.", campaign.Name),
				ICS:         invite,
				RelatedType: ObjectCampaign,
				RelatedID:   campaignID,
			})
			if err != nil {
				return err
			}
			queued++
		}

		if campaign.Status == models.CampaignStatusPlanned {
			return s.campaigns.Update(ctx, tx, actor.OrgID, campaignID, map[string]interface{}{
				"status": models.CampaignStatusInProgress,
			})
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	log.Printf("📧 Queued %d invitations for campaign %s", queued, campaignID)
	return queued, nil
}

// partStatToMemberStatus maps calendar participation onto the member
// lifecycle
func partStatToMemberStatus(partStat string) (string, bool) {
	switch partStat {
	case ics.PartStatAccepted:
		return models.MemberStatusAccepted, true
	case ics.PartStatDeclined:
		return models.MemberStatusDeclined, true
	case ics.PartStatTentative:
		return models.MemberStatusTentative, true
	default:
		return "", false
	}
}

// IngestReply applies a raw METHOD:REPLY calendar payload to the matching
// member. The UID carries the member ID; the attendee address is checked
// against the member record to reject misrouted replies.
func (s *CampaignService) IngestReply(ctx context.Context, actor *models.UserSession, campaignID, raw string) (*models.CampaignMember, error) {
	reply, err := ics.ParseReply(raw)
	if err != nil {
		return nil, apperrors.NewValidationError("reply", err.Error())
	}

	member, err := s.campaigns.FindMemberByID(ctx, s.db, actor.OrgID, reply.UID)
	if err != nil {
		return nil, err
	}
	if member == nil && reply.AttendeeMail != "" {
		member, err = s.campaigns.FindMemberByEmail(ctx, actor.OrgID, campaignID, reply.AttendeeMail)
		if err != nil {
			return nil, err
		}
	}
	if member == nil {
		return nil, apperrors.NewNotFoundError("CampaignMember", reply.UID)
	}
	if member.CampaignID != campaignID {
		return nil, apperrors.NewValidationError("reply", "reply does not belong to this campaign")
	}
	if reply.AttendeeMail != "" && member.Email != reply.AttendeeMail {
		return nil, apperrors.NewValidationError("reply", "attendee does not match the invited member")
	}

	status, ok := partStatToMemberStatus(reply.PartStat)
	if !ok {
		return nil, apperrors.NewValidationError("reply", "unsupported participation status: "+reply.PartStat)
	}

	return s.setMemberStatus(ctx, actor, member, status)
}

// SetMemberStatus records an RSVP or attendance update directly
func (s *CampaignService) SetMemberStatus(ctx context.Context, actor *models.UserSession, memberID, status string) (*models.CampaignMember, error) {
	switch status {
	case models.MemberStatusAccepted, models.MemberStatusDeclined,
		models.MemberStatusTentative, models.MemberStatusAttended:
	default:
		return nil, apperrors.NewValidationError("status", "invalid member status: "+status)
	}

	member, err := s.campaigns.FindMemberByID(ctx, s.db, actor.OrgID, memberID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, apperrors.NewNotFoundError("CampaignMember", memberID)
	}
	return s.setMemberStatus(ctx, actor, member, status)
}

func (s *CampaignService) setMemberStatus(ctx context.Context, actor *models.UserSession, member *models.CampaignMember, status string) (*models.CampaignMember, error) {
	if member.Status == models.MemberStatusAttended && status != models.MemberStatusAttended {
		return nil, apperrors.NewStateTransitionError("CampaignMember", member.Status, status)
	}

	if err := s.campaigns.UpdateMemberStatus(ctx, s.db, actor.OrgID, member.ID, status, time.Now()); err != nil {
		return nil, err
	}

	log.Printf("✅ Campaign member %s moved to %s", member.ID, status)
	return s.campaigns.FindMemberByID(ctx, s.db, actor.OrgID, member.ID)
}

// Complete closes out a finished campaign
func (s *CampaignService) Complete(ctx context.Context, actor *models.UserSession, id string) (*models.Campaign, error) {
	campaign, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if campaign.Status != models.CampaignStatusInProgress {
		return nil, apperrors.NewStateTransitionError("Campaign", campaign.Status, models.CampaignStatusCompleted)
	}

	err = s.txManager.WithTransaction(func(tx *sql.Tx) error {
		if err := s.campaigns.Update(ctx, tx, actor.OrgID, id, map[string]interface{}{
			"status": models.CampaignStatusCompleted,
		}); err != nil {
			return err
		}
		updated := *campaign
		updated.Status = models.CampaignStatusCompleted
		txCtx := s.txManager.InjectTx(ctx, tx)
		publishRecordEvent(txCtx, s.outbox, events.RecordUpdated, ObjectCampaign, actor, &updated, campaign)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, id)
}
