package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/relaycrm/backend/internal/domain/models"
)

func leadRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "org_id", "owner_id", "first_name", "last_name", "company", "email", "phone",
		"website", "title", "status", "source", "score", "industry", "employees", "notes",
		"converted_contact_id", "converted_account_id", "converted_opportunity_id", "enriched_at",
		"created_date", "modified_date",
	})
}

func TestLeadFindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewLeadRepository(db)
	now := time.Now()

	rows := leadRows().AddRow(
		"lead-1", "org-1", "user-1", "Ada", "Lovelace", "Analytical Engines", "ada@example.com", "",
		"engines.example.com", "CTO", models.LeadStatusNew, "Web", 0, "Technology", 120, "",
		nil, nil, nil, nil, now, now)

	mock.ExpectQuery("SELECT (.+) FROM leads WHERE org_id = \\? AND id = \\?").
		WithArgs("org-1", "lead-1").
		WillReturnRows(rows)

	lead, err := repo.FindByID(context.Background(), db, "org-1", "lead-1")
	assert.NoError(t, err)
	assert.NotNil(t, lead)
	assert.Equal(t, "Ada", lead.FirstName)
	assert.Equal(t, models.LeadStatusNew, lead.Status)
	assert.Nil(t, lead.ConvertedContactID)
	assert.False(t, lead.IsConverted())
}

func TestLeadFindByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewLeadRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM leads WHERE org_id = \\? AND id = \\?").
		WithArgs("org-1", "missing").
		WillReturnRows(leadRows())

	lead, err := repo.FindByID(context.Background(), db, "org-1", "missing")
	assert.NoError(t, err)
	assert.Nil(t, lead)
}

func TestLeadCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewLeadRepository(db)

	lead := &models.Lead{
		ID:        "lead-1",
		OrgID:     "org-1",
		OwnerID:   "user-1",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Company:   "Analytical Engines",
		Email:     "ada@example.com",
		Status:    models.LeadStatusNew,
		Source:    "Web",
	}

	mock.ExpectExec("INSERT INTO leads").
		WithArgs("lead-1", "org-1", "user-1", "Ada", "Lovelace", "Analytical Engines",
			"ada@example.com", "", "", "", models.LeadStatusNew, "Web", 0, "", 0, "").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repo.Create(context.Background(), db, lead)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeadMarkConverted(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewLeadRepository(db)
	oppID := "opp-1"

	mock.ExpectExec("UPDATE leads").
		WithArgs(models.LeadStatusConverted, "contact-1", "account-1", &oppID, "org-1", "lead-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.MarkConverted(context.Background(), db, "org-1", "lead-1", "contact-1", "account-1", &oppID)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeadUpdateBuildsDeterministicSet(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewLeadRepository(db)

	// Keys sort alphabetically: score before status
	mock.ExpectExec("UPDATE leads SET score = \\?, status = \\?, modified_date = NOW\\(\\) WHERE org_id = \\? AND id = \\?").
		WithArgs(85, models.LeadStatusWorking, "org-1", "lead-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Update(context.Background(), db, "org-1", "lead-1", map[string]interface{}{
		"status": models.LeadStatusWorking,
		"score":  85,
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
