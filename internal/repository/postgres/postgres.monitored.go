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

type MonitoredAttributeRepo struct {
	PostgresBaseRepo
}

func NewMonitoredAttributeRepository(db database.DB) *MonitoredAttributeRepo {
	repo := &PostgresBaseRepo{db: db}
	return &MonitoredAttributeRepo{PostgresBaseRepo: *repo}
}

// GetOrCreate resolves the "device reports attribute" join row, creating
// it on first payload that carries the attribute for the device.
func (r *MonitoredAttributeRepo) GetOrCreate(ctx context.Context, deviceID, attributeID string) (*models.MonitoredAttribute, error) {
	query := `
		INSERT INTO monitored_attributes (id, device_id, attribute_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (device_id, attribute_id) DO NOTHING`

	_, err := r.db.GetDB().ExecContext(ctx, query, nuts.NID("mattr", 12), deviceID, attributeID, time.Now())
	if err != nil {
		return nil, errors.NewDatabaseError("failed to create monitored attribute", err)
	}

	ma := &models.MonitoredAttribute{}
	err = r.db.GetDB().GetContext(ctx, ma,
		`SELECT * FROM monitored_attributes WHERE device_id = $1 AND attribute_id = $2`,
		deviceID, attributeID)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to get monitored attribute", err)
	}
	return ma, nil
}

func (r *MonitoredAttributeRepo) Get(ctx context.Context, id string) (*models.MonitoredAttribute, error) {
	ma := &models.MonitoredAttribute{}
	err := r.db.GetDB().GetContext(ctx, ma,
		`SELECT * FROM monitored_attributes WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("monitored attribute not found", err)
		}
		return nil, errors.NewDatabaseError("failed to get monitored attribute", err)
	}
	return ma, nil
}

func (r *MonitoredAttributeRepo) GetMany(ctx context.Context, ids []string) ([]*models.MonitoredAttribute, error) {
	mas := []*models.MonitoredAttribute{}
	err := r.db.GetDB().SelectContext(ctx, &mas,
		`SELECT * FROM monitored_attributes WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, errors.NewDatabaseError("failed to get monitored attributes", err)
	}
	return mas, nil
}

func (r *MonitoredAttributeRepo) ListByDevice(ctx context.Context, deviceID string) ([]*models.MonitoredAttribute, error) {
	mas := []*models.MonitoredAttribute{}
	err := r.db.GetDB().SelectContext(ctx, &mas,
		`SELECT * FROM monitored_attributes WHERE device_id = $1 ORDER BY created_at`, deviceID)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list monitored attributes", err)
	}
	return mas, nil
}

func (r *MonitoredAttributeRepo) DeleteByDevice(ctx context.Context, deviceID string) error {
	_, err := r.db.GetDB().ExecContext(ctx,
		`DELETE FROM monitored_attributes WHERE device_id = $1`, deviceID)
	if err != nil {
		return errors.NewDatabaseError("failed to delete monitored attributes", err)
	}
	return nil
}
