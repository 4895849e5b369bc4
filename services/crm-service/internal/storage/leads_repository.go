package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/alecrj/sbay-crm/libs/db"
	"github.com/alecrj/sbay-crm/services/crm-service/internal/model"
)

type LeadsRepository struct {
	pool *db.Pool
}

func NewLeadsRepository(pool *db.Pool) *LeadsRepository {
	return &LeadsRepository{pool: pool}
}

func (r *LeadsRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

const leadColumns = `id::text, name, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(company, ''),
		source, stage, COALESCE(property_id::text, ''), COALESCE(notes, ''), created_at, updated_at`

func (r *LeadsRepository) Create(ctx context.Context, tx pgx.Tx, lead *model.Lead) (string, error) {
	id := uuid.NewString()
	_, err := tx.Exec(ctx, `
		INSERT INTO leads (id, name, email, phone, company, source, stage, property_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, '')::uuid, $9)
	`, id, lead.Name, lead.Email, lead.Phone, lead.Company, lead.Source, lead.Stage, lead.PropertyID, lead.Notes)
	if err != nil {
		return "", err
	}
	return id, nil
}

// Insert writes a lead outside any transaction. Bulk import uses this path;
// the interactive create goes through Create so the outbox event commits
// atomically with the row.
func (r *LeadsRepository) Insert(ctx context.Context, lead *model.Lead) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO leads (id, name, email, phone, company, source, stage, property_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, '')::uuid, $9)
	`, id, lead.Name, lead.Email, lead.Phone, lead.Company, lead.Source, lead.Stage, lead.PropertyID, lead.Notes)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *LeadsRepository) Get(ctx context.Context, leadID string) (model.Lead, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE id = $1
	`, leadID)
	return scanLead(row)
}

// FindByEmail matches case-insensitively; empty emails never match.
func (r *LeadsRepository) FindByEmail(ctx context.Context, email string) (model.Lead, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return model.Lead{}, false, nil
	}
	row := r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE lower(email) = $1
		ORDER BY created_at ASC
		LIMIT 1
	`, email)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Lead{}, false, nil
	}
	if err != nil {
		return model.Lead{}, false, err
	}
	return lead, true, nil
}

func (r *LeadsRepository) List(ctx context.Context, stage, source string, limit int) ([]model.Lead, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE ($1 = '' OR stage = $1)
			AND ($2 = '' OR source = $2)
		ORDER BY created_at DESC
		LIMIT $3
	`, stage, source, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, lead)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *LeadsRepository) Update(ctx context.Context, lead model.Lead) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET name = $2,
			email = $3,
			phone = $4,
			company = $5,
			stage = $6,
			property_id = NULLIF($7, '')::uuid,
			notes = $8,
			updated_at = now()
		WHERE id = $1
	`, lead.ID, lead.Name, lead.Email, lead.Phone, lead.Company, lead.Stage, lead.PropertyID, lead.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *LeadsRepository) UpdateStage(ctx context.Context, leadID, stage string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET stage = $2, updated_at = now()
		WHERE id = $1
	`, leadID, stage)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *LeadsRepository) Delete(ctx context.Context, leadID string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM leads WHERE id = $1
	`, leadID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanLead(row pgx.Row) (model.Lead, error) {
	var lead model.Lead
	var createdAt, updatedAt time.Time
	err := row.Scan(
		&lead.ID,
		&lead.Name,
		&lead.Email,
		&lead.Phone,
		&lead.Company,
		&lead.Source,
		&lead.Stage,
		&lead.PropertyID,
		&lead.Notes,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return model.Lead{}, err
	}
	lead.CreatedAt = createdAt
	lead.UpdatedAt = updatedAt
	return lead, nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
