package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/lingkodlabs/lingkod/internal/attachment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, attachment *domain.Attachment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO certificate_attachments (id, request_id, file_name, file_path, file_type, render_data, uploaded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		attachment.ID,
		attachment.RequestID,
		attachment.FileName,
		attachment.FilePath,
		attachment.FileType,
		attachment.RenderData,
		attachment.UploadedAt,
	).Error
}

func (r *repo) FindByRequest(ctx context.Context, db *gorm.DB, requestID snowflake.ID, fileType string) (*domain.Attachment, error) {
	var attachment domain.Attachment
	err := db.WithContext(ctx).Raw(
		`SELECT id, request_id, file_name, file_path, file_type, render_data, uploaded_at
		 FROM certificate_attachments
		 WHERE request_id = ? AND file_type = ?
		 ORDER BY uploaded_at DESC
		 LIMIT 1`,
		requestID,
		fileType,
	).Scan(&attachment).Error
	if err != nil {
		return nil, err
	}
	if attachment.ID == 0 {
		return nil, nil
	}
	return &attachment, nil
}

func (r *repo) DeleteByRequest(ctx context.Context, db *gorm.DB, requestID snowflake.ID, fileType string) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`DELETE FROM certificate_attachments WHERE request_id = ? AND file_type = ?`,
		requestID,
		fileType,
	)
	return result.RowsAffected, result.Error
}
