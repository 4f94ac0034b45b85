package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS identities (
		id                  BIGSERIAL PRIMARY KEY,
		identity_id         TEXT NOT NULL,
		display_name        TEXT NOT NULL,
		outstanding_balance NUMERIC(12,2) NOT NULL DEFAULT 0,
		email               TEXT,
		metadata            JSONB,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_identities_identity_id ON identities(identity_id);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
