package service

import (
	"context"
	"strings"

	"github.com/lingkodlabs/lingkod/internal/official/domain"
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

func (s *Service) FindByAccount(ctx context.Context, accountID string) (*domain.Official, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, domain.ErrNotFound
	}
	official, err := s.repo.FindByAccount(ctx, s.db, accountID)
	if err != nil {
		return nil, err
	}
	if official == nil {
		return nil, domain.ErrNotFound
	}
	return official, nil
}

func (s *Service) FindCaptain(ctx context.Context) (*domain.Official, error) {
	official, err := s.repo.FindActiveByPosition(ctx, s.db, domain.PositionCaptain)
	if err != nil {
		return nil, err
	}
	if official == nil {
		return nil, domain.ErrNotFound
	}
	return official, nil
}
