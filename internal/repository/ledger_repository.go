package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"badge-compliance-service/internal/domain/compliance"
)

type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

type Identity struct {
	ID                 int64          `gorm:"primaryKey"`
	IdentityID         string         `gorm:"not null;uniqueIndex"`
	DisplayName        string         `gorm:"not null"`
	OutstandingBalance float64        `gorm:"not null"`
	Email              *string
	Metadata           datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt          time.Time
}

func (Identity) TableName() string { return "identities" }

// LoadIdentities returns the full roster, ordered by identity id.
func (r *LedgerRepository) LoadIdentities(ctx context.Context) ([]compliance.Identity, error) {
	var rows []Identity
	err := r.db.WithContext(ctx).
		Order("identity_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make([]compliance.Identity, 0, len(rows))
	for _, row := range rows {
		id := compliance.Identity{
			IdentityID:         row.IdentityID,
			DisplayName:        row.DisplayName,
			OutstandingBalance: row.OutstandingBalance,
			Metadata:           row.Metadata,
		}
		if row.Email != nil {
			id.Email = *row.Email
		}
		result = append(result, id)
	}
	return result, nil
}

// SaveBalance durably writes the new outstanding balance for one identity.
// A missing row is an error so the ledger can roll back its in-memory copy.
func (r *LedgerRepository) SaveBalance(ctx context.Context, identityID string, balance float64) error {
	res := r.db.WithContext(ctx).
		Model(&Identity{}).
		Where("identity_id = ?", identityID).
		Update("outstanding_balance", balance)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("identity %q has no ledger row", identityID)
	}
	return nil
}

// UpsertIdentity creates or refreshes a roster row. The balance of an
// existing row is left untouched.
func (r *LedgerRepository) UpsertIdentity(ctx context.Context, identity compliance.Identity) error {
	row := Identity{
		IdentityID:         identity.IdentityID,
		DisplayName:        identity.DisplayName,
		OutstandingBalance: identity.OutstandingBalance,
		Metadata:           identity.Metadata,
		CreatedAt:          time.Now(),
	}
	if identity.Email != "" {
		row.Email = &identity.Email
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "identity_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_name", "email", "metadata"}),
		}).
		Create(&row).Error
}
