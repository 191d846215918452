package service

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/lingkodlabs/lingkod/internal/attachment/domain"
	"github.com/lingkodlabs/lingkod/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Repo  domain.Repository
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	genID *snowflake.Node
	clock clock.Clock
}

func New(p ServiceParam) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("attachment"),
		repo:  p.Repo,
		genID: p.GenID,
		clock: p.Clock,
	}
}

// Save is append-only. The at-most-one-generated-per-request invariant is
// backed by a unique index; pipeline callers delete the superseded row first.
func (s *Service) Save(ctx context.Context, req domain.SaveAttachmentRequest) (domain.Attachment, error) {
	if req.RequestID == 0 ||
		strings.TrimSpace(req.FileName) == "" ||
		strings.TrimSpace(req.FilePath) == "" ||
		strings.TrimSpace(req.FileType) == "" {
		return domain.Attachment{}, domain.ErrInvalidSave
	}

	var renderData datatypes.JSON
	if len(req.RenderData) > 0 {
		encoded, err := json.Marshal(req.RenderData)
		if err != nil {
			return domain.Attachment{}, err
		}
		renderData = encoded
	}

	attachment := domain.Attachment{
		ID:         s.genID.Generate(),
		RequestID:  req.RequestID,
		FileName:   strings.TrimSpace(req.FileName),
		FilePath:   strings.TrimSpace(req.FilePath),
		FileType:   strings.TrimSpace(req.FileType),
		RenderData: renderData,
		UploadedAt: s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, &attachment); err != nil {
		return domain.Attachment{}, err
	}

	s.log.Info("attachment saved",
		zap.String("attachment_id", attachment.ID.String()),
		zap.String("request_id", attachment.RequestID.String()),
		zap.String("file_type", attachment.FileType),
		zap.String("file_name", attachment.FileName),
	)
	return attachment, nil
}

func (s *Service) FindByRequest(ctx context.Context, requestID snowflake.ID, fileType string) (*domain.Attachment, error) {
	return s.repo.FindByRequest(ctx, s.db, requestID, fileType)
}

func (s *Service) DeleteByRequest(ctx context.Context, requestID snowflake.ID, fileType string) (bool, error) {
	deleted, err := s.repo.DeleteByRequest(ctx, s.db, requestID, fileType)
	if err != nil {
		return false, err
	}
	return deleted > 0, nil
}

func (s *Service) OpenForDownload(ctx context.Context, requestID snowflake.ID) (*domain.Attachment, error) {
	attachment, err := s.repo.FindByRequest(ctx, s.db, requestID, domain.FileTypeGenerated)
	if err != nil {
		return nil, err
	}
	if attachment == nil {
		return nil, domain.ErrNotFound
	}

	if _, err := os.Stat(attachment.FilePath); err != nil {
		if os.IsNotExist(err) {
			s.log.Warn("attachment row exists but file is gone",
				zap.String("request_id", requestID.String()),
				zap.String("file_path", attachment.FilePath),
			)
			return nil, domain.ErrFileMissing
		}
		return nil, err
	}
	return attachment, nil
}
