package postgres

import (
	"github.com/aptsense/hub/internal/database"
	"github.com/aptsense/hub/internal/errors"
)

// InitializeSchema creates the tables and uniqueness constraints the
// repositories rely on. The unique indexes are load-bearing: every
// get-or-create path depends on them to collapse concurrent inserts
// into a single row.
func InitializeSchema(db database.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS apartments (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			street TEXT NOT NULL DEFAULT '',
			city TEXT NOT NULL DEFAULT '',
			postal_code TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_apartments_user ON apartments(user_id)`,
		`CREATE TABLE IF NOT EXISTS sensor_models (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS attributes (
			id TEXT PRIMARY KEY,
			uri TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			ui_type TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_attributes_uri
			ON attributes(uri) WHERE uri <> ''`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_attributes_description
			ON attributes(description) WHERE uri = ''`,
		`CREATE TABLE IF NOT EXISTS device_bindings (
			id TEXT PRIMARY KEY,
			identifier TEXT NOT NULL UNIQUE,
			apartment_id TEXT REFERENCES apartments(id) ON DELETE SET NULL,
			sensor_model_id TEXT REFERENCES sensor_models(id) ON DELETE SET NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS monitored_attributes (
			id TEXT PRIMARY KEY,
			device_id TEXT NOT NULL REFERENCES device_bindings(id) ON DELETE CASCADE,
			attribute_id TEXT NOT NULL REFERENCES attributes(id),
			created_at TIMESTAMPTZ NOT NULL,
			UNIQUE (device_id, attribute_id)
		)`,
		`CREATE TABLE IF NOT EXISTS sensor_values (
			id TEXT PRIMARY KEY,
			monitored_attribute_id TEXT NOT NULL REFERENCES monitored_attributes(id) ON DELETE CASCADE,
			value DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_values_attr_created
			ON sensor_values(monitored_attribute_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS services (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			price TEXT NOT NULL DEFAULT '',
			benefit_short TEXT NOT NULL DEFAULT '',
			benefit_long TEXT NOT NULL DEFAULT '',
			eula_url TEXT NOT NULL DEFAULT '',
			img_logo_url TEXT NOT NULL DEFAULT '',
			img_service_url TEXT NOT NULL DEFAULT '',
			subscribe_url TEXT NOT NULL DEFAULT '',
			unsubscribe_url TEXT NOT NULL DEFAULT '',
			data_url TEXT NOT NULL DEFAULT '',
			report_url TEXT NOT NULL DEFAULT '',
			preview_url TEXT NOT NULL DEFAULT '',
			auth_token TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS service_requires (
			service_id TEXT NOT NULL REFERENCES services(id) ON DELETE CASCADE,
			attribute_id TEXT NOT NULL REFERENCES attributes(id),
			PRIMARY KEY (service_id, attribute_id)
		)`,
		`CREATE TABLE IF NOT EXISTS subscriptions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			service_id TEXT NOT NULL REFERENCES services(id) ON DELETE CASCADE,
			uuid TEXT NOT NULL UNIQUE,
			registered TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_subscriptions_user ON subscriptions(user_id)`,
		`CREATE TABLE IF NOT EXISTS subscription_attributes (
			subscription_id TEXT NOT NULL REFERENCES subscriptions(id) ON DELETE CASCADE,
			monitored_attribute_id TEXT NOT NULL REFERENCES monitored_attributes(id) ON DELETE CASCADE,
			PRIMARY KEY (subscription_id, monitored_attribute_id)
		)`,
	}

	for _, query := range queries {
		if _, err := db.GetDB().Exec(query); err != nil {
			return errors.NewDatabaseError("failed to initialize schema", err)
		}
	}
	return nil
}
