package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lingkodlabs/lingkod/internal/certificate/domain"
	"github.com/lingkodlabs/lingkod/pkg/db/pagination"
	"gorm.io/gorm"
)

const requestColumns = `id, resident_id, document_type_id, purpose, quantity, control_number,
	status, submitted_at, issued_date, processed_by, denied_reason, released_by, date_claimed,
	generation_status, generation_error, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, request *domain.Request) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO certificate_requests (
			id, resident_id, document_type_id, purpose, quantity, control_number,
			status, submitted_at, generation_status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		request.ID,
		request.ResidentID,
		request.DocumentTypeID,
		request.Purpose,
		request.Quantity,
		request.ControlNumber,
		request.Status,
		request.SubmittedAt,
		request.GenerationStatus,
		request.CreatedAt,
		request.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Request, error) {
	var request domain.Request
	err := db.WithContext(ctx).Raw(
		`SELECT `+requestColumns+` FROM certificate_requests WHERE id = ?`,
		id,
	).Scan(&request).Error
	if err != nil {
		return nil, err
	}
	if request.ID == 0 {
		return nil, nil
	}
	return &request, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Request, error) {
	var requests []*domain.Request
	stmt := db.WithContext(ctx).Model(&domain.Request{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.ResidentID != 0 {
		stmt = stmt.Where("resident_id = ?", filter.ResidentID)
	}
	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		if cursor.SubmittedAt != "" && cursor.ID != "" {
			stmt = stmt.Where("(submitted_at, id) < (?, ?)", cursor.SubmittedAt, cursor.ID)
		}
	}
	err := page.Apply(stmt).
		Order("submitted_at desc, id desc").
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}

// UpdateDecision is guarded on the current status so two racing decisions
// cannot both commit: the loser matches zero rows and gets
// ErrInvalidTransition instead of overwriting the winner.
func (r *repo) UpdateDecision(ctx context.Context, db *gorm.DB, id snowflake.ID, update domain.DecisionUpdate) error {
	res := db.WithContext(ctx).Exec(
		`UPDATE certificate_requests
		 SET status = ?, processed_by = ?, issued_date = ?, denied_reason = ?,
		     generation_status = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		update.Status,
		update.ProcessedBy,
		update.IssuedDate,
		update.DeniedReason,
		update.GenerationStatus,
		time.Now().UTC(),
		id,
		domain.StatusPending,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: request is no longer %s", domain.ErrInvalidTransition, domain.StatusPending)
	}
	return nil
}

func (r *repo) UpdateRelease(ctx context.Context, db *gorm.DB, id snowflake.ID, update domain.ReleaseUpdate) error {
	res := db.WithContext(ctx).Exec(
		`UPDATE certificate_requests
		 SET status = ?, released_by = ?, date_claimed = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusReleased,
		update.ReleasedBy,
		update.DateClaimed,
		time.Now().UTC(),
		id,
		domain.StatusApproved,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: request is no longer %s", domain.ErrInvalidTransition, domain.StatusApproved)
	}
	return nil
}

func (r *repo) UpdateGeneration(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.GenerationStatus, genErr *string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE certificate_requests
		 SET generation_status = ?, generation_error = ?, updated_at = ?
		 WHERE id = ?`,
		status,
		genErr,
		time.Now().UTC(),
		id,
	).Error
}

func (r *repo) ListStatusNames(ctx context.Context, db *gorm.DB) ([]string, error) {
	var names []string
	err := db.WithContext(ctx).Raw(
		`SELECT name FROM certificate_statuses`,
	).Scan(&names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}
