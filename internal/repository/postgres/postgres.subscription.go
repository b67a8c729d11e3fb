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

type SubscriptionRepo struct {
	PostgresBaseRepo
}

func NewSubscriptionRepository(db database.DB) *SubscriptionRepo {
	repo := &PostgresBaseRepo{db: db}
	return &SubscriptionRepo{PostgresBaseRepo: *repo}
}

// Create persists the subscription and its attribute links atomically.
func (r *SubscriptionRepo) Create(ctx context.Context, subscription *models.Subscription) error {
	if subscription.ID == "" {
		subscription.ID = nuts.NID("sub", 12)
	}
	now := time.Now()
	subscription.CreatedAt = now
	subscription.UpdatedAt = now

	tx, err := r.db.GetDB().BeginTxx(ctx, nil)
	if err != nil {
		return errors.NewDatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO subscriptions (id, user_id, service_id, uuid, registered, created_at, updated_at)
		VALUES (:id, :user_id, :service_id, :uuid, :registered, :created_at, :updated_at)`

	if _, err := tx.NamedExecContext(ctx, query, subscription); err != nil {
		return errors.NewDatabaseError("failed to create subscription", err)
	}

	for _, maID := range subscription.MonitoredAttributeIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO subscription_attributes (subscription_id, monitored_attribute_id)
			 VALUES ($1, $2)`, subscription.ID, maID)
		if err != nil {
			return errors.NewDatabaseError("failed to link subscription attribute", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewDatabaseError("failed to commit transaction", err)
	}
	return nil
}

func (r *SubscriptionRepo) Get(ctx context.Context, id string) (*models.Subscription, error) {
	subscription := &models.Subscription{}
	err := r.db.GetDB().GetContext(ctx, subscription,
		`SELECT * FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("subscription not found", err)
		}
		return nil, errors.NewDatabaseError("failed to get subscription", err)
	}

	if err := r.loadAttributes(ctx, subscription); err != nil {
		return nil, err
	}
	return subscription, nil
}

func (r *SubscriptionRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.GetDB().ExecContext(ctx,
		`DELETE FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		return errors.NewDatabaseError("failed to delete subscription", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}
	if rows == 0 {
		return errors.NewNotFoundError("subscription not found", nil)
	}
	return nil
}

func (r *SubscriptionRepo) ListByUser(ctx context.Context, userID string) ([]*models.Subscription, error) {
	subscriptions := []*models.Subscription{}
	err := r.db.GetDB().SelectContext(ctx, &subscriptions,
		`SELECT * FROM subscriptions WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list subscriptions", err)
	}

	for _, subscription := range subscriptions {
		if err := r.loadAttributes(ctx, subscription); err != nil {
			return nil, err
		}
	}
	return subscriptions, nil
}

// ListByMonitoredAttributes returns each subscription whose attribute
// set intersects the given ids, at most once.
func (r *SubscriptionRepo) ListByMonitoredAttributes(ctx context.Context, monitoredAttributeIDs []string) ([]*models.Subscription, error) {
	subscriptions := []*models.Subscription{}
	query := `
		SELECT DISTINCT s.* FROM subscriptions s
		JOIN subscription_attributes sa ON sa.subscription_id = s.id
		WHERE sa.monitored_attribute_id = ANY($1)
		ORDER BY s.created_at`

	err := r.db.GetDB().SelectContext(ctx, &subscriptions, query, pq.Array(monitoredAttributeIDs))
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list subscriptions by attributes", err)
	}

	for _, subscription := range subscriptions {
		if err := r.loadAttributes(ctx, subscription); err != nil {
			return nil, err
		}
	}
	return subscriptions, nil
}

func (r *SubscriptionRepo) SetRegistered(ctx context.Context, id string, registered time.Time) error {
	result, err := r.db.GetDB().ExecContext(ctx,
		`UPDATE subscriptions SET registered = $1, updated_at = $2 WHERE id = $3`,
		registered, time.Now(), id)
	if err != nil {
		return errors.NewDatabaseError("failed to set registered", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}
	if rows == 0 {
		return errors.NewNotFoundError("subscription not found", nil)
	}
	return nil
}

func (r *SubscriptionRepo) loadAttributes(ctx context.Context, subscription *models.Subscription) error {
	ids := []string{}
	err := r.db.GetDB().SelectContext(ctx, &ids,
		`SELECT monitored_attribute_id FROM subscription_attributes WHERE subscription_id = $1`,
		subscription.ID)
	if err != nil {
		return errors.NewDatabaseError("failed to load subscription attributes", err)
	}
	subscription.MonitoredAttributeIDs = ids
	return nil
}
