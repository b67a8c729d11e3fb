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

type DeviceRepo struct {
	PostgresBaseRepo
}

func NewDeviceRepository(db database.DB) *DeviceRepo {
	repo := &PostgresBaseRepo{db: db}
	return &DeviceRepo{PostgresBaseRepo: *repo}
}

// GetOrCreateByIdentifier resolves a device binding by its physical
// identifier, creating an unassigned placeholder row on first sight.
// The insert races through the identifier uniqueness constraint: the
// loser of a concurrent insert falls through to the select.
func (r *DeviceRepo) GetOrCreateByIdentifier(ctx context.Context, identifier string) (*models.DeviceBinding, error) {
	now := time.Now()
	query := `
		INSERT INTO device_bindings (id, identifier, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (identifier) DO NOTHING`

	result, err := r.db.GetDB().ExecContext(ctx, query, nuts.NID("dev", 12), identifier, now)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to create device binding", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows > 0 {
		nuts.L.Infof("[DeviceRepo] New device binding for identifier %s", identifier)
	}

	device := &models.DeviceBinding{}
	err = r.db.GetDB().GetContext(ctx, device,
		`SELECT * FROM device_bindings WHERE identifier = $1`, identifier)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to get device binding", err)
	}
	return device, nil
}

func (r *DeviceRepo) Get(ctx context.Context, id string) (*models.DeviceBinding, error) {
	device := &models.DeviceBinding{}
	err := r.db.GetDB().GetContext(ctx, device,
		`SELECT * FROM device_bindings WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("device binding not found", err)
		}
		return nil, errors.NewDatabaseError("failed to get device binding", err)
	}
	return device, nil
}

func (r *DeviceRepo) Update(ctx context.Context, device *models.DeviceBinding) error {
	query := `
		UPDATE device_bindings SET
			apartment_id = :apartment_id,
			sensor_model_id = :sensor_model_id,
			updated_at = :updated_at
		WHERE id = :id`

	device.UpdatedAt = time.Now()
	result, err := r.db.GetDB().NamedExecContext(ctx, query, device)
	if err != nil {
		return errors.NewDatabaseError("failed to update device binding", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}
	if rows == 0 {
		return errors.NewNotFoundError("device binding not found", nil)
	}
	return nil
}

func (r *DeviceRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.GetDB().ExecContext(ctx,
		`DELETE FROM device_bindings WHERE id = $1`, id)
	if err != nil {
		return errors.NewDatabaseError("failed to delete device binding", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}
	if rows == 0 {
		return errors.NewNotFoundError("device binding not found", nil)
	}
	return nil
}

func (r *DeviceRepo) ListForUser(ctx context.Context, userID string) ([]*models.DeviceBinding, error) {
	devices := []*models.DeviceBinding{}
	query := `
		SELECT d.* FROM device_bindings d
		JOIN apartments a ON a.id = d.apartment_id
		WHERE a.user_id = $1
		ORDER BY d.created_at`

	err := r.db.GetDB().SelectContext(ctx, &devices, query, userID)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list device bindings", err)
	}
	return devices, nil
}
