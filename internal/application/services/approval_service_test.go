package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/relaycrm/backend/internal/domain/models"
	"github.com/relaycrm/backend/internal/infrastructure/database"
	"github.com/relaycrm/backend/internal/infrastructure/persistence"
	apperrors "github.com/relaycrm/backend/pkg/errors"
	"github.com/relaycrm/backend/pkg/expression"
)

func newApprovalFixture(t *testing.T) (*ApprovalService, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}

	conn := database.NewWithDB(db)
	txManager := persistence.NewTransactionManager(conn)
	outbox := NewOutboxService(conn, NewEventBus(), txManager)
	notifications := NewNotificationService(conn)
	svc := NewApprovalService(conn, txManager, outbox, notifications, expression.NewEngine())

	return svc, mock, func() { db.Close() }
}

func processRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "org_id", "name", "object_type", "entry_condition", "approver_type", "approver_id",
		"is_active", "created_date", "modified_date",
	})
}

func workItemRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "org_id", "process_id", "object_type", "record_id", "status", "submitted_by_id",
		"approver_id", "comments", "decided_by_id", "decided_date", "created_date", "modified_date",
	})
}

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "org_id", "name", "email", "password_hash", "profile", "manager_id", "is_active",
		"created_date",
	})
}

func submitter() *models.UserSession {
	return &models.UserSession{
		ID:      "user-1",
		OrgID:   "org-1",
		Name:    "Ada",
		Email:   "ada@example.com",
		Profile: models.ProfileStandard,
	}
}

func TestSubmitRecordNoMatchingProcess(t *testing.T) {
	svc, mock, closeDB := newApprovalFixture(t)
	defer closeDB()
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM approval_processes WHERE org_id = \\? AND object_type = \\? AND is_active = TRUE").
		WithArgs("org-1", ObjectQuote).
		WillReturnRows(processRows().AddRow(
			"proc-1", "org-1", "Deep discount review", ObjectQuote, "discount_pct > 20",
			models.ApproverTypeManager, nil, true, now, now))

	item, err := svc.SubmitRecord(context.Background(), submitter(), ObjectQuote, "quote-1",
		map[string]interface{}{"discount_pct": 10.0})

	assert.NoError(t, err)
	assert.Nil(t, item, "a non-qualifying record opens no work item")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitRecordOpensWorkItem(t *testing.T) {
	svc, mock, closeDB := newApprovalFixture(t)
	defer closeDB()
	now := time.Now()
	approverID := "approver-1"

	mock.ExpectQuery("SELECT (.+) FROM approval_processes WHERE org_id = \\? AND object_type = \\? AND is_active = TRUE").
		WithArgs("org-1", ObjectQuote).
		WillReturnRows(processRows().AddRow(
			"proc-1", "org-1", "Deep discount review", ObjectQuote, "discount_pct > 20",
			models.ApproverTypeNamed, approverID, true, now, now))

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("org-1", ObjectQuote, "quote-1", models.ApprovalStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO approval_work_items").
		WithArgs(sqlmock.AnyArg(), "org-1", "proc-1", ObjectQuote, "quote-1",
			models.ApprovalStatusPending, "user-1", approverID, "").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO notifications").
		WithArgs(sqlmock.AnyArg(), "org-1", approverID, "Approval requested",
			sqlmock.AnyArg(), sqlmock.AnyArg(), "approval").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	item, err := svc.SubmitRecord(context.Background(), submitter(), ObjectQuote, "quote-1",
		map[string]interface{}{"discount_pct": 35.0})

	assert.NoError(t, err)
	assert.NotNil(t, item)
	assert.Equal(t, models.ApprovalStatusPending, item.Status)
	assert.Equal(t, approverID, item.ApproverID)
	assert.Equal(t, "user-1", item.SubmittedByID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitRecordRejectsDuplicatePending(t *testing.T) {
	svc, mock, closeDB := newApprovalFixture(t)
	defer closeDB()
	now := time.Now()
	approverID := "approver-1"

	mock.ExpectQuery("SELECT (.+) FROM approval_processes WHERE org_id = \\? AND object_type = \\? AND is_active = TRUE").
		WithArgs("org-1", ObjectQuote).
		WillReturnRows(processRows().AddRow(
			"proc-1", "org-1", "Deep discount review", ObjectQuote, "discount_pct > 20",
			models.ApproverTypeNamed, approverID, true, now, now))

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("org-1", ObjectQuote, "quote-1", models.ApprovalStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	item, err := svc.SubmitRecord(context.Background(), submitter(), ObjectQuote, "quote-1",
		map[string]interface{}{"discount_pct": 35.0})

	assert.Nil(t, item)
	assert.True(t, apperrors.IsConflict(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveApproverFallsBackWhenManagerInactive(t *testing.T) {
	svc, mock, closeDB := newApprovalFixture(t)
	defer closeDB()
	now := time.Now()

	actor := submitter()
	managerID := "mgr-1"
	actor.ManagerID = &managerID

	process := &models.ApprovalProcess{
		ID:           "proc-1",
		OrgID:        "org-1",
		ApproverType: models.ApproverTypeManager,
	}

	mock.ExpectQuery("SELECT (.+) FROM users WHERE org_id = \\? AND id = \\?").
		WithArgs("org-1", managerID).
		WillReturnRows(userRows().AddRow(
			managerID, "org-1", "Grace", "grace@example.com", "hash",
			models.ProfileStandard, nil, false, now))

	mock.ExpectQuery("SELECT (.+) FROM users WHERE org_id = \\? AND profile = \\? AND is_active = TRUE").
		WithArgs("org-1", models.ProfileOrgAdmin).
		WillReturnRows(userRows().AddRow(
			"admin-1", "org-1", "Admin", "admin@example.com", "hash",
			models.ProfileOrgAdmin, nil, true, now))

	approver, err := svc.resolveApprover(context.Background(), actor, process)

	assert.NoError(t, err)
	assert.Equal(t, "admin-1", approver, "inactive manager falls through to an org admin")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveApproverSoloAdminApprovesSelf(t *testing.T) {
	svc, mock, closeDB := newApprovalFixture(t)
	defer closeDB()
	now := time.Now()

	actor := &models.UserSession{
		ID:      "admin-1",
		OrgID:   "org-1",
		Name:    "Admin",
		Profile: models.ProfileOrgAdmin,
	}
	process := &models.ApprovalProcess{
		ID:           "proc-1",
		OrgID:        "org-1",
		ApproverType: models.ApproverTypeManager,
	}

	mock.ExpectQuery("SELECT (.+) FROM users WHERE org_id = \\? AND profile = \\? AND is_active = TRUE").
		WithArgs("org-1", models.ProfileOrgAdmin).
		WillReturnRows(userRows().AddRow(
			"admin-1", "org-1", "Admin", "admin@example.com", "hash",
			models.ProfileOrgAdmin, nil, true, now))

	approver, err := svc.resolveApprover(context.Background(), actor, process)

	assert.NoError(t, err)
	assert.Equal(t, "admin-1", approver)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecallPublishesRecordRevert(t *testing.T) {
	svc, mock, closeDB := newApprovalFixture(t)
	defer closeDB()
	now := time.Now()

	pending := func() *sqlmock.Rows {
		return workItemRows().AddRow(
			"item-1", "org-1", "proc-1", ObjectQuote, "quote-1", models.ApprovalStatusPending,
			"user-1", "approver-1", "", nil, nil, now, now)
	}

	mock.ExpectQuery("SELECT (.+) FROM approval_work_items WHERE org_id = \\? AND id = \\?").
		WithArgs("org-1", "item-1").
		WillReturnRows(pending())

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE approval_work_items").
		WithArgs(models.ApprovalStatusRecalled, "user-1", "recalled by submitter", sqlmock.AnyArg(),
			"org-1", "item-1", models.ApprovalStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// The revert event must commit with the recall so the quote leaves review
	mock.ExpectExec("INSERT INTO outbox_events").
		WithArgs(sqlmock.AnyArg(), "approval.recalled", sqlmock.AnyArg(), persistence.OutboxStatusPending).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO notifications").
		WithArgs(sqlmock.AnyArg(), "org-1", "approver-1", sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), "approval").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	mock.ExpectQuery("SELECT (.+) FROM approval_work_items WHERE org_id = \\? AND id = \\?").
		WithArgs("org-1", "item-1").
		WillReturnRows(workItemRows().AddRow(
			"item-1", "org-1", "proc-1", ObjectQuote, "quote-1", models.ApprovalStatusRecalled,
			"user-1", "approver-1", "recalled by submitter", "user-1", now, now, now))

	item, err := svc.Recall(context.Background(), submitter(), "item-1")

	assert.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusRecalled, item.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecallByNonSubmitterDenied(t *testing.T) {
	svc, mock, closeDB := newApprovalFixture(t)
	defer closeDB()
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM approval_work_items WHERE org_id = \\? AND id = \\?").
		WithArgs("org-1", "item-1").
		WillReturnRows(workItemRows().AddRow(
			"item-1", "org-1", "proc-1", ObjectQuote, "quote-1", models.ApprovalStatusPending,
			"someone-else", "approver-1", "", nil, nil, now, now))

	item, err := svc.Recall(context.Background(), submitter(), "item-1")

	assert.Nil(t, item)
	assert.True(t, apperrors.IsPermission(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
