package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/lingkodlabs/lingkod/internal/certtemplate/domain"
	"github.com/lingkodlabs/lingkod/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
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
		log:   p.Log.Named("certtemplate"),
		repo:  p.Repo,
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *Service) FindActiveByType(ctx context.Context, documentTypeID snowflake.ID) (*domain.Template, error) {
	template, err := s.repo.FindActiveByType(ctx, s.db, documentTypeID)
	if err != nil {
		return nil, err
	}
	if template == nil {
		return nil, domain.ErrNotFound
	}
	return template, nil
}

func (s *Service) Register(ctx context.Context, req domain.RegisterTemplateRequest) (domain.Template, error) {
	fileName := strings.TrimSpace(req.FileName)
	filePath := strings.TrimSpace(req.FilePath)
	if req.DocumentTypeID == 0 || fileName == "" || filePath == "" {
		return domain.Template{}, domain.ErrInvalidRequest
	}

	template := domain.Template{
		ID:             s.genID.Generate(),
		DocumentTypeID: req.DocumentTypeID,
		FileName:       fileName,
		FilePath:       filePath,
		Active:         true,
		UploadedAt:     s.clock.Now(),
	}
	// One transaction: the new upload supersedes every earlier active row,
	// so at most one template per type is ever active.
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.DeactivateByType(ctx, tx, req.DocumentTypeID); err != nil {
			return err
		}
		return s.repo.Insert(ctx, tx, &template)
	})
	if err != nil {
		return domain.Template{}, err
	}

	s.log.Info("template registered",
		zap.String("template_id", template.ID.String()),
		zap.String("document_type_id", template.DocumentTypeID.String()),
		zap.String("file_name", template.FileName),
	)
	return template, nil
}
