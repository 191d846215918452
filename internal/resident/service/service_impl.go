package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/lingkodlabs/lingkod/internal/resident/domain"
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

func (s *Service) FindByID(ctx context.Context, id snowflake.ID) (*domain.Resident, error) {
	resident, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if resident == nil {
		return nil, domain.ErrNotFound
	}
	return resident, nil
}

func (s *Service) FindByAccount(ctx context.Context, accountID string) (*domain.Resident, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, domain.ErrNotFound
	}
	resident, err := s.repo.FindByAccount(ctx, s.db, accountID)
	if err != nil {
		return nil, err
	}
	if resident == nil {
		return nil, domain.ErrNotFound
	}
	return resident, nil
}
