package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/lingkodlabs/lingkod/internal/clock"
	"github.com/lingkodlabs/lingkod/internal/config"
	obsmetrics "github.com/lingkodlabs/lingkod/internal/observability/metrics"
	"github.com/lingkodlabs/lingkod/internal/sequence/domain"
	"github.com/lingkodlabs/lingkod/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Policy  *config.IssuancePolicyHolder
	Metrics *obsmetrics.PipelineMetrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	policy  *config.IssuancePolicyHolder
	metrics *obsmetrics.PipelineMetrics
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("sequence"),
		clock:   p.Clock,
		policy:  p.Policy,
		metrics: p.Metrics,
	}
}

// Allocate reserves the next control number for the current calendar month.
// The read-increment-write runs inside one transaction holding a row lock on
// the counter, so concurrent callers serialize per partition and no increment
// is ever handed out twice. The increment is not idempotent, which is why the
// lock is pessimistic rather than optimistic-retry.
func (s *Service) Allocate(ctx context.Context, documentTypeCode string) (string, error) {
	yearMonth := s.clock.Now().Format("2006-01")
	partition := yearMonth
	prefix := yearMonth
	// Per-type partitioning restarts the increment per document type, so the
	// type code has to appear in the issued number or counters would collide
	// across types within a month.
	if s.policy != nil && s.policy.Get().PerDocumentType {
		code := strings.ToUpper(strings.TrimSpace(documentTypeCode))
		partition = code + ":" + yearMonth
		prefix = code + "-" + yearMonth
	}

	var increment int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, found, err := s.lockCounter(ctx, tx, partition)
		if err != nil {
			return err
		}

		increment = current + 1
		if !found {
			return s.insertCounter(ctx, tx, partition, increment)
		}
		return s.updateCounter(ctx, tx, partition, increment)
	})
	if err != nil {
		s.metrics.IncAllocation(obsmetrics.OutcomeError)
		s.log.Error("control number allocation failed",
			zap.String("partition", partition),
			zap.Bool("retriable", db.IsLockErr(err) || db.IsDuplicateKeyErr(err)),
			zap.Error(err),
		)
		return "", fmt.Errorf("%w: %v", domain.ErrAllocationFailed, err)
	}

	s.metrics.IncAllocation(obsmetrics.OutcomeOK)
	return fmt.Sprintf("%s-%04d", prefix, increment), nil
}

func (s *Service) lockCounter(ctx context.Context, tx *gorm.DB, partition string) (int64, bool, error) {
	var row struct {
		PartitionKey  string
		LastIncrement int64
	}
	err := tx.WithContext(ctx).Raw(
		`SELECT partition_key, last_increment
		 FROM control_number_counters
		 WHERE partition_key = ?
		 FOR UPDATE`,
		partition,
	).Scan(&row).Error
	if err != nil {
		return 0, false, err
	}
	return row.LastIncrement, row.PartitionKey != "", nil
}

func (s *Service) insertCounter(ctx context.Context, tx *gorm.DB, partition string, value int64) error {
	now := s.clock.Now()
	return tx.WithContext(ctx).Exec(
		`INSERT INTO control_number_counters (partition_key, last_increment, created_at, updated_at)
		 VALUES (?, ?, ?, ?)`,
		partition,
		value,
		now,
		now,
	).Error
}

func (s *Service) updateCounter(ctx context.Context, tx *gorm.DB, partition string, value int64) error {
	return tx.WithContext(ctx).Exec(
		`UPDATE control_number_counters
		 SET last_increment = ?, updated_at = ?
		 WHERE partition_key = ?`,
		value,
		s.clock.Now(),
		partition,
	).Error
}
