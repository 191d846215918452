package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	FileTypeGenerated = "generated"
	FileTypeClaimSlip = "claimslip"
)

// Attachment is a persisted artifact produced by the issuance pipeline. Its
// existence implies the render/convert pipeline completed for the owning
// request. Regeneration supersedes the old row (delete then insert); the
// composite unique index keeps at most one artifact per type per request on
// every dialect, including the ones migrated via AutoMigrate.
type Attachment struct {
	ID         snowflake.ID   `json:"id,string"`
	RequestID  snowflake.ID   `json:"request_id,string" gorm:"uniqueIndex:uq_certificate_attachments_request_type"`
	FileName   string         `json:"file_name"`
	FilePath   string         `json:"file_path"`
	FileType   string         `json:"file_type" gorm:"size:32;uniqueIndex:uq_certificate_attachments_request_type"`
	RenderData datatypes.JSON `json:"render_data,omitempty"`
	UploadedAt time.Time      `json:"uploaded_at"`
}

func (Attachment) TableName() string {
	return "certificate_attachments"
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, attachment *Attachment) error
	FindByRequest(ctx context.Context, db *gorm.DB, requestID snowflake.ID, fileType string) (*Attachment, error)
	DeleteByRequest(ctx context.Context, db *gorm.DB, requestID snowflake.ID, fileType string) (int64, error)
}

type SaveAttachmentRequest struct {
	RequestID  snowflake.ID
	FileName   string
	FilePath   string
	FileType   string
	RenderData map[string]string
}

type Service interface {
	Save(ctx context.Context, req SaveAttachmentRequest) (Attachment, error)
	FindByRequest(ctx context.Context, requestID snowflake.ID, fileType string) (*Attachment, error)
	DeleteByRequest(ctx context.Context, requestID snowflake.ID, fileType string) (bool, error)
	// OpenForDownload re-verifies the artifact exists on disk. A row whose
	// file has gone missing is ErrFileMissing, never a generic failure.
	OpenForDownload(ctx context.Context, requestID snowflake.ID) (*Attachment, error)
}

var (
	ErrNotFound    = errors.New("attachment_not_found")
	ErrFileMissing = errors.New("attachment_file_missing")
	ErrInvalidSave = errors.New("invalid_attachment")
)
