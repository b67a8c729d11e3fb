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

type ServiceRepo struct {
	PostgresBaseRepo
}

func NewServiceRepository(db database.DB) *ServiceRepo {
	repo := &PostgresBaseRepo{db: db}
	return &ServiceRepo{PostgresBaseRepo: *repo}
}

func (r *ServiceRepo) Create(ctx context.Context, service *models.Service) error {
	if service.ID == "" {
		service.ID = nuts.NID("svc", 12)
	}
	now := time.Now()
	service.CreatedAt = now
	service.UpdatedAt = now

	query := `
		INSERT INTO services (
			id, name, description, price, benefit_short, benefit_long,
			eula_url, img_logo_url, img_service_url,
			subscribe_url, unsubscribe_url, data_url, report_url, preview_url,
			auth_token, created_at, updated_at
		) VALUES (
			:id, :name, :description, :price, :benefit_short, :benefit_long,
			:eula_url, :img_logo_url, :img_service_url,
			:subscribe_url, :unsubscribe_url, :data_url, :report_url, :preview_url,
			:auth_token, :created_at, :updated_at
		)`

	if _, err := r.db.GetDB().NamedExecContext(ctx, query, service); err != nil {
		return errors.NewDatabaseError("failed to create service", err)
	}

	for _, attrID := range service.RequiredAttributeIDs {
		_, err := r.db.GetDB().ExecContext(ctx,
			`INSERT INTO service_requires (service_id, attribute_id) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`, service.ID, attrID)
		if err != nil {
			return errors.NewDatabaseError("failed to link required attribute", err)
		}
	}
	return nil
}

func (r *ServiceRepo) Get(ctx context.Context, id string) (*models.Service, error) {
	service := &models.Service{}
	err := r.db.GetDB().GetContext(ctx, service,
		`SELECT * FROM services WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("service not found", err)
		}
		return nil, errors.NewDatabaseError("failed to get service", err)
	}

	if err := r.loadRequires(ctx, service); err != nil {
		return nil, err
	}
	return service, nil
}

// ListAvailableForUser returns the services for which at least one
// required attribute is currently monitored on a device in one of the
// user's apartments. Distinct by service.
func (r *ServiceRepo) ListAvailableForUser(ctx context.Context, userID string) ([]*models.Service, error) {
	services := []*models.Service{}
	query := `
		SELECT DISTINCT s.* FROM services s
		JOIN service_requires sr ON sr.service_id = s.id
		JOIN monitored_attributes ma ON ma.attribute_id = sr.attribute_id
		JOIN device_bindings d ON d.id = ma.device_id
		JOIN apartments a ON a.id = d.apartment_id
		WHERE a.user_id = $1
		ORDER BY s.name`

	err := r.db.GetDB().SelectContext(ctx, &services, query, userID)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list available services", err)
	}

	for _, service := range services {
		if err := r.loadRequires(ctx, service); err != nil {
			return nil, err
		}
	}
	return services, nil
}

func (r *ServiceRepo) loadRequires(ctx context.Context, service *models.Service) error {
	ids := []string{}
	err := r.db.GetDB().SelectContext(ctx, &ids,
		`SELECT attribute_id FROM service_requires WHERE service_id = $1`, service.ID)
	if err != nil {
		return errors.NewDatabaseError("failed to load required attributes", err)
	}
	service.RequiredAttributeIDs = ids
	return nil
}
