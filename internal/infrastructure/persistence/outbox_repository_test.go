package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestOutboxEnqueue(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewOutboxRepository(db)

	mock.ExpectExec("INSERT INTO outbox_events").
		WithArgs(sqlmock.AnyArg(), "record.created", sqlmock.AnyArg(), OutboxStatusPending).
		WillReturnResult(sqlmock.NewResult(1, 1))

	id, err := repo.Enqueue(context.Background(), db, "record.created", map[string]string{"record_id": "lead-1"})
	assert.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxGetPendingEvents(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewOutboxRepository(db)

	rows := sqlmock.NewRows([]string{"id", "event_type", "payload", "retry_count"}).
		AddRow("evt-1", "record.created", `{"record_id":"lead-1"}`, 0).
		AddRow("evt-2", "record.updated", `{"record_id":"lead-2"}`, 1)

	mock.ExpectQuery("SELECT id, event_type, payload, retry_count").
		WithArgs(OutboxStatusPending, 50).
		WillReturnRows(rows)

	events, err := repo.GetPendingEvents(context.Background(), 50)
	assert.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Equal(t, "evt-1", events[0].ID)
	assert.Equal(t, 1, events[1].RetryCount)
}

func TestOutboxClaimEventAlreadyClaimed(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewOutboxRepository(db)

	mock.ExpectQuery("SELECT id FROM outbox_events").
		WithArgs("evt-1", OutboxStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	claimed, err := repo.ClaimEvent(context.Background(), db, "evt-1")
	assert.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestOutboxMarkCompleted(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewOutboxRepository(db)

	mock.ExpectExec("UPDATE outbox_events").
		WithArgs(OutboxStatusCompleted, "evt-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.MarkCompleted(context.Background(), db, "evt-1")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
