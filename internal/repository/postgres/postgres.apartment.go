package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/aptsense/hub/internal/database"
	"github.com/aptsense/hub/internal/errors"
	"github.com/aptsense/hub/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

type ApartmentRepo struct {
	PostgresBaseRepo
}

func NewApartmentRepository(db database.DB) *ApartmentRepo {
	repo := &PostgresBaseRepo{db: db}
	return &ApartmentRepo{PostgresBaseRepo: *repo}
}

func (r *ApartmentRepo) Create(ctx context.Context, apartment *models.Apartment) error {
	if apartment.ID == "" {
		apartment.ID = nuts.NID("apt", 12)
	}
	now := time.Now()
	apartment.CreatedAt = now
	apartment.UpdatedAt = now

	query := `
		INSERT INTO apartments (id, user_id, street, city, postal_code, created_at, updated_at)
		VALUES (:id, :user_id, :street, :city, :postal_code, :created_at, :updated_at)`

	if _, err := r.db.GetDB().NamedExecContext(ctx, query, apartment); err != nil {
		return errors.NewDatabaseError("failed to create apartment", err)
	}
	return nil
}

func (r *ApartmentRepo) Get(ctx context.Context, id string) (*models.Apartment, error) {
	apartment := &models.Apartment{}
	err := r.db.GetDB().GetContext(ctx, apartment,
		`SELECT * FROM apartments WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("apartment not found", err)
		}
		return nil, errors.NewDatabaseError("failed to get apartment", err)
	}
	return apartment, nil
}

func (r *ApartmentRepo) ListForUser(ctx context.Context, userID string) ([]*models.Apartment, error) {
	apartments := []*models.Apartment{}
	err := r.db.GetDB().SelectContext(ctx, &apartments,
		`SELECT * FROM apartments WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list apartments", err)
	}
	return apartments, nil
}
