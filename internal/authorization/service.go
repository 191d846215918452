package authorization

import (
	"context"
	"errors"
)

const (
	ObjectCertificate  = "certificate"
	ObjectAttachment   = "attachment"
	ObjectTemplate     = "template"
	ObjectDocumentType = "document_type"
)

const (
	ActionCertificateSubmit     = "certificate.submit"
	ActionCertificateView       = "certificate.view"
	ActionCertificateViewAll    = "certificate.view_all"
	ActionCertificateDecide     = "certificate.decide"
	ActionCertificateRelease    = "certificate.release"
	ActionCertificateRegenerate = "certificate.regenerate"

	ActionAttachmentDownload = "attachment.download"

	ActionTemplateUpload = "template.upload"
	ActionTemplateView   = "template.view"

	ActionDocumentTypeView = "document_type.view"
)

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
)

// Service answers whether an account may perform an action. Roles derive
// from the officials and residents tables; policies live in casbin backed
// by the same database.
type Service interface {
	Authorize(ctx context.Context, accountID string, object string, action string) error
}
