package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// DocumentType is a certificate category (clearance, indigency, residency).
type DocumentType struct {
	ID        snowflake.ID `json:"id,string"`
	Code      string       `json:"code" gorm:"size:64;uniqueIndex"`
	Name      string       `json:"name"`
	Active    bool         `json:"active"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (DocumentType) TableName() string {
	return "document_types"
}

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*DocumentType, error)
	FindAll(ctx context.Context, db *gorm.DB) ([]DocumentType, error)
}

type Service interface {
	FindByID(ctx context.Context, id snowflake.ID) (*DocumentType, error)
	FindAll(ctx context.Context) ([]DocumentType, error)
}

var ErrNotFound = errors.New("document_type_not_found")
