package domain

import (
	"context"
	"errors"
	"time"
)

// ControlNumberCounter is the per-partition allocation row. Rows are created
// lazily on first allocation and never deleted; only Allocate mutates them,
// under a row-level exclusive lock.
type ControlNumberCounter struct {
	PartitionKey  string `gorm:"primaryKey;size:32"`
	LastIncrement int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (ControlNumberCounter) TableName() string {
	return "control_number_counters"
}

// Service allocates control numbers of the form YYYY-MM-0001. Every returned
// number is unique within its partition; an aborted transaction leaves the
// counter untouched and the caller gets ErrAllocationFailed.
type Service interface {
	Allocate(ctx context.Context, documentTypeCode string) (string, error)
}

var (
	// ErrAllocationFailed marks retriable lock/transaction failures. The
	// caller must re-run the whole allocation; a previously computed number
	// is never reused.
	ErrAllocationFailed = errors.New("allocation_failed")
)
