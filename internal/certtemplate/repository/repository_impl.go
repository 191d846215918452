package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/lingkodlabs/lingkod/internal/certtemplate/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, template *domain.Template) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO certificate_templates (id, document_type_id, file_name, file_path, active, uploaded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		template.ID,
		template.DocumentTypeID,
		template.FileName,
		template.FilePath,
		template.Active,
		template.UploadedAt,
	).Error
}

func (r *repo) DeactivateByType(ctx context.Context, db *gorm.DB, documentTypeID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE certificate_templates SET active = ? WHERE document_type_id = ? AND active = ?`,
		false,
		documentTypeID,
		true,
	).Error
}

func (r *repo) FindActiveByType(ctx context.Context, db *gorm.DB, documentTypeID snowflake.ID) (*domain.Template, error) {
	var template domain.Template
	err := db.WithContext(ctx).Raw(
		`SELECT id, document_type_id, file_name, file_path, active, uploaded_at
		 FROM certificate_templates
		 WHERE document_type_id = ? AND active = ?
		 ORDER BY uploaded_at DESC, id DESC
		 LIMIT 1`,
		documentTypeID,
		true,
	).Scan(&template).Error
	if err != nil {
		return nil, err
	}
	if template.ID == 0 {
		return nil, nil
	}
	return &template, nil
}
