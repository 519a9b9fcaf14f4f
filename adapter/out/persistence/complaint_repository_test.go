package persistence

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"complaint_server/core/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var complaintCols = []string{"id", "text", "status", "sentiment", "category", "timestamp"}

func newMockRepo(t *testing.T) (*ComplaintRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &ComplaintRepository{db: sqlx.NewDb(db, "sqlmock")}, mock
}

func TestComplaintRepository_Insert(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO complaints")).
		WithArgs("My payment failed", "open", "negative", "Payment", now).
		WillReturnRows(sqlmock.NewRows(complaintCols).
			AddRow(int64(42), "My payment failed", "open", "negative", "Payment", now))

	c := domain.NewComplaint("My payment failed", domain.SentimentNegative, domain.CategoryPayment, now)
	stored, err := repo.Insert(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, int64(42), stored.ID)
	assert.Equal(t, domain.StatusOpen, stored.Status)
	assert.Equal(t, domain.SentimentNegative, stored.Sentiment)
	assert.Equal(t, domain.CategoryPayment, stored.Category)
	assert.True(t, stored.Timestamp.Equal(now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComplaintRepository_Insert_ConstraintViolation(t *testing.T) {
	tests := []struct {
		name   string
		driver error
	}{
		{"pgx", &pgconn.PgError{Code: "23514", ConstraintName: "ck_complaints_category"}},
		{"lib/pq", &pq.Error{Code: "23514", Constraint: "ck_complaints_category"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO complaints")).
				WillReturnError(tt.driver)

			_, err := repo.Insert(context.Background(),
				domain.NewComplaint("x", domain.SentimentNeutral, domain.CategoryOther, time.Now()))

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConstraint)
			assert.Contains(t, err.Error(), "ck_complaints_category")
		})
	}
}

func TestComplaintRepository_Insert_ConnectionError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO complaints")).
		WillReturnError(errors.New("connection refused"))

	_, err := repo.Insert(context.Background(),
		domain.NewComplaint("x", domain.SentimentNeutral, domain.CategoryOther, time.Now()))

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrConstraint)
}

func TestComplaintRepository_FindOpenWithinWindow(t *testing.T) {
	repo, mock := newMockRepo(t)
	since := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)
	created := since.Add(10 * time.Minute)

	mock.ExpectQuery(`(?s)SELECT .* FROM complaints\s+WHERE "timestamp" >= \$1\s+AND status = \$2\s+AND category <> \$3`).
		WithArgs(since, "open", "Other").
		WillReturnRows(sqlmock.NewRows(complaintCols).
			AddRow(int64(1), "app crashes", "open", "negative", "Technical", created).
			AddRow(int64(2), "refund please", "open", "neutral", "Payment", created))

	complaints, err := repo.FindOpenWithinWindow(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, complaints, 2)

	assert.Equal(t, domain.CategoryTechnical, complaints[0].Category)
	assert.Equal(t, int64(2), complaints[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComplaintRepository_UpdateStatus(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE complaints SET status = 'closed' WHERE id = $1")).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), 5, domain.StatusClosed)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComplaintRepository_UpdateStatus_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE complaints SET status = 'closed' WHERE id = $1")).
		WithArgs(int64(999)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), 999, domain.StatusClosed)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestComplaintRepository_UpdateStatus_RefusesReopen(t *testing.T) {
	repo, mock := newMockRepo(t)

	err := repo.UpdateStatus(context.Background(), 5, domain.StatusOpen)

	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NotErrorIs(t, err, ErrNotFound)
	// no statement reaches the database
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComplaintRepository_GetByID(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM complaints WHERE id = $1")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(complaintCols).
			AddRow(int64(7), "late delivery", "closed", "negative", "Other", now))

	c, err := repo.GetByID(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, domain.StatusClosed, c.Status)

	mock.ExpectQuery(regexp.QuoteMeta("FROM complaints WHERE id = $1")).
		WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows(complaintCols))

	missing, err := repo.GetByID(context.Background(), 8)
	assert.NoError(t, err)
	assert.Nil(t, missing)
}
