package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Template is an uploaded certificate layout for one document type. The
// placeholder schema is implied by the file content; rendering leaves
// unrecognized tokens untouched, so templates and code can evolve separately.
type Template struct {
	ID             snowflake.ID `json:"id,string"`
	DocumentTypeID snowflake.ID `json:"document_type_id,string"`
	FileName       string       `json:"file_name"`
	FilePath       string       `json:"file_path"`
	Active         bool         `json:"active"`
	UploadedAt     time.Time    `json:"uploaded_at"`
}

func (Template) TableName() string {
	return "certificate_templates"
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, template *Template) error
	DeactivateByType(ctx context.Context, db *gorm.DB, documentTypeID snowflake.ID) error
	FindActiveByType(ctx context.Context, db *gorm.DB, documentTypeID snowflake.ID) (*Template, error)
}

type RegisterTemplateRequest struct {
	DocumentTypeID snowflake.ID
	FileName       string
	FilePath       string
}

type Service interface {
	// FindActiveByType returns the most recently uploaded active template.
	FindActiveByType(ctx context.Context, documentTypeID snowflake.ID) (*Template, error)
	Register(ctx context.Context, req RegisterTemplateRequest) (Template, error)
}

var (
	ErrNotFound       = errors.New("template_not_found")
	ErrInvalidRequest = errors.New("invalid_template_request")
)
