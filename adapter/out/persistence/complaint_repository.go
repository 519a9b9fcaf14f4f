package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"complaint_server/core/domain"
	"complaint_server/core/port/out"

	"github.com/jmoiron/sqlx"
)

// ComplaintRepository implements out.ComplaintRepository on Postgres
type ComplaintRepository struct {
	db *sqlx.DB
}

// NewComplaintRepository creates a new ComplaintRepository
func NewComplaintRepository(db *sqlx.DB) out.ComplaintRepository {
	return &ComplaintRepository{db: db}
}

type complaintRow struct {
	ID        int64     `db:"id"`
	Text      string    `db:"text"`
	Status    string    `db:"status"`
	Sentiment string    `db:"sentiment"`
	Category  string    `db:"category"`
	Timestamp time.Time `db:"timestamp"`
}

func (r *complaintRow) toDomain() *domain.Complaint {
	return &domain.Complaint{
		ID:        r.ID,
		Text:      r.Text,
		Status:    domain.ComplaintStatus(r.Status),
		Sentiment: domain.Sentiment(r.Sentiment),
		Category:  domain.Category(r.Category),
		Timestamp: r.Timestamp,
	}
}

const complaintColumns = `id, text, status, sentiment, category, "timestamp"`

func (r *ComplaintRepository) Insert(ctx context.Context, c *domain.Complaint) (*domain.Complaint, error) {
	query := `
		INSERT INTO complaints (text, status, sentiment, category, "timestamp")
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + complaintColumns

	var row complaintRow
	err := r.db.QueryRowxContext(ctx, query,
		c.Text, string(c.Status), string(c.Sentiment), string(c.Category), c.Timestamp,
	).StructScan(&row)
	if err != nil {
		return nil, fmt.Errorf("insert complaint: %w", mapError(err))
	}

	return row.toDomain(), nil
}

func (r *ComplaintRepository) FindOpenWithinWindow(ctx context.Context, since time.Time) ([]*domain.Complaint, error) {
	query := `
		SELECT ` + complaintColumns + `
		FROM complaints
		WHERE "timestamp" >= $1
		  AND status = $2
		  AND category <> $3
		ORDER BY id`

	var rows []complaintRow
	if err := r.db.SelectContext(ctx, &rows, query,
		since, string(domain.StatusOpen), string(domain.DefaultCategory),
	); err != nil {
		return nil, fmt.Errorf("find open complaints: %w", err)
	}

	complaints := make([]*domain.Complaint, len(rows))
	for i := range rows {
		complaints[i] = rows[i].toDomain()
	}
	return complaints, nil
}

func (r *ComplaintRepository) UpdateStatus(ctx context.Context, id int64, status domain.ComplaintStatus) error {
	if status != domain.StatusClosed {
		return fmt.Errorf("complaint %d to %q: %w", id, status, ErrInvalidTransition)
	}

	query := `UPDATE complaints SET status = 'closed' WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("update complaint status: %w", mapError(err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update complaint status: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("complaint %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *ComplaintRepository) GetByID(ctx context.Context, id int64) (*domain.Complaint, error) {
	query := `SELECT ` + complaintColumns + ` FROM complaints WHERE id = $1`

	var row complaintRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get complaint: %w", err)
	}
	return row.toDomain(), nil
}
