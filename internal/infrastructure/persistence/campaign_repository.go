package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/relaycrm/backend/internal/domain/models"
)

// CampaignRepository handles campaigns and their members
type CampaignRepository struct {
	db *sql.DB
}

func NewCampaignRepository(db *sql.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

const campaignColumns = `id, org_id, owner_id, name, type, status, start_date, end_date, budget,
		location, created_date, modified_date`

// Create inserts a campaign
func (r *CampaignRepository) Create(ctx context.Context, exec Executor, c *models.Campaign) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, org_id, owner_id, name, type, status, start_date, end_date, budget,
			location, created_date, modified_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
	`, TableCampaigns)

	_, err := exec.ExecContext(ctx, query,
		c.ID, c.OrgID, c.OwnerID, c.Name, c.Type, c.Status,
		c.StartDate, c.EndDate, c.Budget, c.Location)
	return err
}

// FindByID retrieves a campaign within the org
func (r *CampaignRepository) FindByID(ctx context.Context, exec Executor, orgID, id string) (*models.Campaign, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE org_id = ? AND id = ? LIMIT 1", campaignColumns, TableCampaigns)
	c, err := scanCampaign(exec.QueryRowContext(ctx, query, orgID, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// FindAll lists campaigns of the org
func (r *CampaignRepository) FindAll(ctx context.Context, orgID string, limit, offset int) ([]*models.Campaign, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE org_id = ?
		ORDER BY created_date DESC LIMIT ? OFFSET ?
	`, campaignColumns, TableCampaigns)

	rows, err := r.db.QueryContext(ctx, query, orgID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := make([]*models.Campaign, 0)
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// Update applies a partial update to a campaign
func (r *CampaignRepository) Update(ctx context.Context, exec Executor, orgID, id string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}

	setClause, args := buildSetClause(updates)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE org_id = ? AND id = ?", TableCampaigns, setClause)
	args = append(args, orgID, id)

	_, err := exec.ExecContext(ctx, query, args...)
	return err
}

const memberColumns = `id, org_id, campaign_id, lead_id, contact_id, email, status, responded_at,
		created_date, modified_date`

// AddMember inserts a campaign member
func (r *CampaignRepository) AddMember(ctx context.Context, exec Executor, m *models.CampaignMember) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, org_id, campaign_id, lead_id, contact_id, email, status,
			created_date, modified_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
	`, TableCampaignMembers)

	_, err := exec.ExecContext(ctx, query,
		m.ID, m.OrgID, m.CampaignID, m.LeadID, m.ContactID, m.Email, m.Status)
	return err
}

// FindMemberByID retrieves a member within the org
func (r *CampaignRepository) FindMemberByID(ctx context.Context, exec Executor, orgID, id string) (*models.CampaignMember, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE org_id = ? AND id = ? LIMIT 1", memberColumns, TableCampaignMembers)
	m, err := scanMember(exec.QueryRowContext(ctx, query, orgID, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

// FindMemberByEmail retrieves a campaign member by invitee email. RSVP
// replies carry only the attendee address.
func (r *CampaignRepository) FindMemberByEmail(ctx context.Context, orgID, campaignID, email string) (*models.CampaignMember, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE org_id = ? AND campaign_id = ? AND email = ? LIMIT 1
	`, memberColumns, TableCampaignMembers)

	m, err := scanMember(r.db.QueryRowContext(ctx, query, orgID, campaignID, email))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

// MemberExists reports whether the email is already on the campaign
func (r *CampaignRepository) MemberExists(ctx context.Context, orgID, campaignID, email string) (bool, error) {
	var exists bool
	query := fmt.Sprintf(`
		SELECT EXISTS(SELECT 1 FROM %s WHERE org_id = ? AND campaign_id = ? AND email = ?)
	`, TableCampaignMembers)

	err := r.db.QueryRowContext(ctx, query, orgID, campaignID, email).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// FindMembers lists campaign members, optionally filtered by status
func (r *CampaignRepository) FindMembers(ctx context.Context, orgID, campaignID, status string) ([]*models.CampaignMember, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE org_id = ? AND campaign_id = ?", memberColumns, TableCampaignMembers)
	args := []interface{}{orgID, campaignID}

	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_date ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]*models.CampaignMember, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// UpdateMemberStatus records an RSVP response
func (r *CampaignRepository) UpdateMemberStatus(ctx context.Context, exec Executor, orgID, id, status string, respondedAt time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s SET status = ?, responded_at = ?, modified_date = NOW()
		WHERE org_id = ? AND id = ?
	`, TableCampaignMembers)

	_, err := exec.ExecContext(ctx, query, status, respondedAt, orgID, id)
	return err
}

func scanCampaign(s rowScanner) (*models.Campaign, error) {
	var c models.Campaign
	var startDate, endDate sql.NullTime

	err := s.Scan(&c.ID, &c.OrgID, &c.OwnerID, &c.Name, &c.Type, &c.Status,
		&startDate, &endDate, &c.Budget, &c.Location, &c.CreatedDate, &c.ModifiedDate)
	if err != nil {
		return nil, err
	}

	if startDate.Valid {
		c.StartDate = &startDate.Time
	}
	if endDate.Valid {
		c.EndDate = &endDate.Time
	}
	return &c, nil
}

func scanMember(s rowScanner) (*models.CampaignMember, error) {
	var m models.CampaignMember
	var leadID, contactID sql.NullString
	var respondedAt sql.NullTime

	err := s.Scan(&m.ID, &m.OrgID, &m.CampaignID, &leadID, &contactID, &m.Email,
		&m.Status, &respondedAt, &m.CreatedDate, &m.ModifiedDate)
	if err != nil {
		return nil, err
	}

	if leadID.Valid {
		m.LeadID = &leadID.String
	}
	if contactID.Valid {
		m.ContactID = &contactID.String
	}
	if respondedAt.Valid {
		m.RespondedAt = &respondedAt.Time
	}
	return &m, nil
}
