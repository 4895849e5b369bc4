package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/alecrj/sbay-crm/libs/db"
	"github.com/alecrj/sbay-crm/services/crm-service/internal/model"
)

type PropertiesRepository struct {
	pool *db.Pool
}

func NewPropertiesRepository(pool *db.Pool) *PropertiesRepository {
	return &PropertiesRepository{pool: pool}
}

const propertyColumns = `id::text, title, COALESCE(address, ''), COALESCE(city, ''),
		COALESCE(square_feet, 0), COALESCE(price_per_sf::text, ''), COALESCE(description, ''),
		status, created_at, updated_at`

func (r *PropertiesRepository) Create(ctx context.Context, p *model.Property) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO properties (id, title, address, city, square_feet, price_per_sf, description, status)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, '')::numeric, $7, $8)
	`, id, p.Title, p.Address, p.City, p.SquareFeet, p.PricePerSF, p.Description, p.Status)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *PropertiesRepository) Get(ctx context.Context, propertyID string) (model.Property, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+propertyColumns+`
		FROM properties
		WHERE id = $1
	`, propertyID)
	return scanProperty(row)
}

func (r *PropertiesRepository) List(ctx context.Context, status, city string, limit int) ([]model.Property, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+propertyColumns+`
		FROM properties
		WHERE ($1 = '' OR status = $1)
			AND ($2 = '' OR city = $2)
		ORDER BY created_at DESC
		LIMIT $3
	`, status, city, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *PropertiesRepository) Update(ctx context.Context, p model.Property) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE properties
		SET title = $2,
			address = $3,
			city = $4,
			square_feet = $5,
			price_per_sf = NULLIF($6, '')::numeric,
			description = $7,
			status = $8,
			updated_at = now()
		WHERE id = $1
	`, p.ID, p.Title, p.Address, p.City, p.SquareFeet, p.PricePerSF, p.Description, p.Status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PropertiesRepository) Delete(ctx context.Context, propertyID string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM properties WHERE id = $1
	`, propertyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanProperty(row pgx.Row) (model.Property, error) {
	var p model.Property
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Address,
		&p.City,
		&p.SquareFeet,
		&p.PricePerSF,
		&p.Description,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return model.Property{}, err
	}
	return p, nil
}
