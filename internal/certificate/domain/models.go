package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Status is the closed request-lifecycle vocabulary. The backing lookup
// table is environment-specific, so rows are matched by name, never by id;
// startup validation asserts all four names exist.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
	StatusReleased Status = "RELEASED"
)

func AllStatuses() []Status {
	return []Status{StatusPending, StatusApproved, StatusRejected, StatusReleased}
}

// ParseStatus matches case-insensitively and trims whitespace.
func ParseStatus(name string) (Status, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case string(StatusPending):
		return StatusPending, nil
	case string(StatusApproved):
		return StatusApproved, nil
	case string(StatusRejected):
		return StatusRejected, nil
	case string(StatusReleased):
		return StatusReleased, nil
	default:
		return "", ErrUnknownStatus
	}
}

// GenerationStatus tracks the detached certificate-generation job so a
// failed pipeline run is queryable instead of vanishing into a log line.
type GenerationStatus string

const (
	GenerationNone    GenerationStatus = "none"
	GenerationQueued  GenerationStatus = "queued"
	GenerationRunning GenerationStatus = "running"
	GenerationDone    GenerationStatus = "done"
	GenerationFailed  GenerationStatus = "failed"
)

// Request is a certificate request. Rows are never physically deleted; the
// lifecycle operations are the only mutation path. ControlNumber is assigned
// exactly once, at submission, and never changes.
type Request struct {
	ID               snowflake.ID     `json:"id,string"`
	ResidentID       snowflake.ID     `json:"resident_id,string"`
	DocumentTypeID   snowflake.ID     `json:"document_type_id,string"`
	Purpose          string           `json:"purpose"`
	Quantity         int              `json:"quantity"`
	ControlNumber    string           `json:"control_number" gorm:"size:64;uniqueIndex:uq_certificate_requests_control_number"`
	Status           Status           `json:"status"`
	SubmittedAt      time.Time        `json:"submitted_at"`
	IssuedDate       *time.Time       `json:"issued_date,omitempty"`
	ProcessedBy      *snowflake.ID    `json:"processed_by,omitempty"`
	DeniedReason     *string          `json:"denied_reason,omitempty"`
	ReleasedBy       *snowflake.ID    `json:"released_by,omitempty"`
	DateClaimed      *time.Time       `json:"date_claimed,omitempty"`
	GenerationStatus GenerationStatus `json:"generation_status"`
	GenerationError  *string          `json:"generation_error,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

func (Request) TableName() string {
	return "certificate_requests"
}

// StatusRecord is one row of the external status vocabulary table.
type StatusRecord struct {
	ID   snowflake.ID
	Name string `gorm:"size:32;uniqueIndex"`
}

func (StatusRecord) TableName() string {
	return "certificate_statuses"
}

var (
	ErrNotFound               = errors.New("certificate_request_not_found")
	ErrUnknownStatus          = errors.New("unknown_status")
	ErrInvalidTransition      = errors.New("invalid_status_transition")
	ErrReasonRequired         = errors.New("denial_reason_required")
	ErrInvalidPurpose         = errors.New("invalid_purpose")
	ErrInvalidQuantity        = errors.New("invalid_quantity")
	ErrDuplicateControlNumber = errors.New("duplicate_control_number")
	ErrAttachmentRequired     = errors.New("attachment_required_for_release")
)
