package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lingkodlabs/lingkod/pkg/db/pagination"
	"gorm.io/gorm"
)

type DecisionUpdate struct {
	Status           Status
	ProcessedBy      snowflake.ID
	IssuedDate       *time.Time
	DeniedReason     *string
	GenerationStatus GenerationStatus
}

type ReleaseUpdate struct {
	ReleasedBy  snowflake.ID
	DateClaimed time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, request *Request) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Request, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Request, error)
	// UpdateDecision and UpdateRelease are conditional on the row still
	// holding the only status the transition is legal from (PENDING and
	// APPROVED respectively); a concurrent transition surfaces as
	// ErrInvalidTransition.
	UpdateDecision(ctx context.Context, db *gorm.DB, id snowflake.ID, update DecisionUpdate) error
	UpdateRelease(ctx context.Context, db *gorm.DB, id snowflake.ID, update ReleaseUpdate) error
	UpdateGeneration(ctx context.Context, db *gorm.DB, id snowflake.ID, status GenerationStatus, genErr *string) error
	ListStatusNames(ctx context.Context, db *gorm.DB) ([]string, error)
}
