package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/lingkodlabs/lingkod/internal/doctype/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.DocumentType, error) {
	var docType domain.DocumentType
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, name, active, created_at, updated_at
		 FROM document_types WHERE id = ?`,
		id,
	).Scan(&docType).Error
	if err != nil {
		return nil, err
	}
	if docType.ID == 0 {
		return nil, nil
	}
	return &docType, nil
}

func (r *repo) FindAll(ctx context.Context, db *gorm.DB) ([]domain.DocumentType, error) {
	var docTypes []domain.DocumentType
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, name, active, created_at, updated_at
		 FROM document_types
		 WHERE active = ?
		 ORDER BY name`,
		true,
	).Scan(&docTypes).Error
	if err != nil {
		return nil, err
	}
	return docTypes, nil
}
