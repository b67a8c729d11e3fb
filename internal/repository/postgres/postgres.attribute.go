package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/aptsense/hub/internal/database"
	"github.com/aptsense/hub/internal/errors"
	"github.com/aptsense/hub/internal/models"
	"github.com/lib/pq"
	nuts "github.com/vaudience/go-nuts"
)

type AttributeRepo struct {
	PostgresBaseRepo
}

func NewAttributeRepository(db database.DB) *AttributeRepo {
	repo := &PostgresBaseRepo{db: db}
	return &AttributeRepo{PostgresBaseRepo: *repo}
}

// GetOrCreateByURI resolves an attribute by URI, creating it with the
// given default description if absent.
func (r *AttributeRepo) GetOrCreateByURI(ctx context.Context, uri, description string) (*models.Attribute, error) {
	now := time.Now()
	query := `
		INSERT INTO attributes (id, uri, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (uri) WHERE uri <> '' DO NOTHING`

	_, err := r.db.GetDB().ExecContext(ctx, query, nuts.NID("attr", 12), uri, description, now)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to create attribute", err)
	}

	attr := &models.Attribute{}
	err = r.db.GetDB().GetContext(ctx, attr,
		`SELECT * FROM attributes WHERE uri = $1`, uri)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to get attribute", err)
	}
	return attr, nil
}

// GetOrCreateByDescription resolves an attribute that has no URI; the
// description acts as the identity key.
func (r *AttributeRepo) GetOrCreateByDescription(ctx context.Context, description string) (*models.Attribute, error) {
	now := time.Now()
	query := `
		INSERT INTO attributes (id, uri, description, created_at, updated_at)
		VALUES ($1, '', $2, $3, $3)
		ON CONFLICT (description) WHERE uri = '' DO NOTHING`

	_, err := r.db.GetDB().ExecContext(ctx, query, nuts.NID("attr", 12), description, now)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to create attribute", err)
	}

	attr := &models.Attribute{}
	err = r.db.GetDB().GetContext(ctx, attr,
		`SELECT * FROM attributes WHERE uri = '' AND description = $1`, description)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to get attribute", err)
	}
	return attr, nil
}

func (r *AttributeRepo) Get(ctx context.Context, id string) (*models.Attribute, error) {
	attr := &models.Attribute{}
	err := r.db.GetDB().GetContext(ctx, attr,
		`SELECT * FROM attributes WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("attribute not found", err)
		}
		return nil, errors.NewDatabaseError("failed to get attribute", err)
	}
	return attr, nil
}

func (r *AttributeRepo) GetMany(ctx context.Context, ids []string) ([]*models.Attribute, error) {
	attrs := []*models.Attribute{}
	err := r.db.GetDB().SelectContext(ctx, &attrs,
		`SELECT * FROM attributes WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, errors.NewDatabaseError("failed to get attributes", err)
	}
	return attrs, nil
}
