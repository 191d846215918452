package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/lingkodlabs/lingkod/internal/doctype/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB   *gorm.DB
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	repo domain.Repository
}

func New(p ServiceParam) domain.Service {
	return &Service{db: p.DB, repo: p.Repo}
}

func (s *Service) FindByID(ctx context.Context, id snowflake.ID) (*domain.DocumentType, error) {
	docType, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if docType == nil {
		return nil, domain.ErrNotFound
	}
	return docType, nil
}

func (s *Service) FindAll(ctx context.Context) ([]domain.DocumentType, error) {
	return s.repo.FindAll(ctx, s.db)
}
