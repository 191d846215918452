package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

const PositionCaptain = "Barangay Captain"

// Official resolves an acting identity to the display name and position used
// for processed-by and signatory placeholders.
type Official struct {
	ID        snowflake.ID `json:"id,string"`
	AccountID string       `json:"account_id" gorm:"size:64;uniqueIndex"`
	FullName  string       `json:"full_name"`
	Position  string       `json:"position"`
	Active    bool         `json:"active"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (Official) TableName() string {
	return "officials"
}

type Repository interface {
	FindByAccount(ctx context.Context, db *gorm.DB, accountID string) (*Official, error)
	FindActiveByPosition(ctx context.Context, db *gorm.DB, position string) (*Official, error)
}

type Service interface {
	FindByAccount(ctx context.Context, accountID string) (*Official, error)
	// FindCaptain returns the active barangay captain, the default signatory.
	FindCaptain(ctx context.Context) (*Official, error)
}

var ErrNotFound = errors.New("official_not_found")
