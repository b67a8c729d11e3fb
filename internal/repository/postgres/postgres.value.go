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

type ValueRepo struct {
	PostgresBaseRepo
}

func NewValueRepository(db database.DB) *ValueRepo {
	repo := &PostgresBaseRepo{db: db}
	return &ValueRepo{PostgresBaseRepo: *repo}
}

// Append stores a new immutable reading for a monitored attribute and
// returns the created row.
func (r *ValueRepo) Append(ctx context.Context, monitoredAttributeID string, value float64, timestamp time.Time) (*models.Value, error) {
	v := &models.Value{
		ID:                   nuts.NID("val", 16),
		MonitoredAttributeID: monitoredAttributeID,
		Value:                value,
		CreatedAt:            timestamp,
	}

	query := `
		INSERT INTO sensor_values (id, monitored_attribute_id, value, created_at)
		VALUES (:id, :monitored_attribute_id, :value, :created_at)`

	if _, err := r.db.GetDB().NamedExecContext(ctx, query, v); err != nil {
		return nil, errors.NewDatabaseError("failed to append value", err)
	}
	return v, nil
}

func (r *ValueRepo) Latest(ctx context.Context, monitoredAttributeID string) (*models.Value, error) {
	v := &models.Value{}
	query := `
		SELECT * FROM sensor_values
		WHERE monitored_attribute_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	err := r.db.GetDB().GetContext(ctx, v, query, monitoredAttributeID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("no values recorded", err)
		}
		return nil, errors.NewDatabaseError("failed to get latest value", err)
	}
	return v, nil
}

func (r *ValueRepo) ListByMonitoredAttributes(ctx context.Context, monitoredAttributeIDs []string) ([]*models.Value, error) {
	values := []*models.Value{}
	query := `
		SELECT * FROM sensor_values
		WHERE monitored_attribute_id = ANY($1)
		ORDER BY created_at`

	err := r.db.GetDB().SelectContext(ctx, &values, query, pq.Array(monitoredAttributeIDs))
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list values", err)
	}
	return values, nil
}

func (r *ValueRepo) DeleteByMonitoredAttributes(ctx context.Context, monitoredAttributeIDs []string) error {
	_, err := r.db.GetDB().ExecContext(ctx,
		`DELETE FROM sensor_values WHERE monitored_attribute_id = ANY($1)`,
		pq.Array(monitoredAttributeIDs))
	if err != nil {
		return errors.NewDatabaseError("failed to delete values", err)
	}
	return nil
}
