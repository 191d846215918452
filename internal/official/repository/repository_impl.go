package repository

import (
	"context"

	"github.com/lingkodlabs/lingkod/internal/official/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByAccount(ctx context.Context, db *gorm.DB, accountID string) (*domain.Official, error) {
	var official domain.Official
	err := db.WithContext(ctx).Raw(
		`SELECT id, account_id, full_name, position, active, created_at, updated_at
		 FROM officials WHERE account_id = ?`,
		accountID,
	).Scan(&official).Error
	if err != nil {
		return nil, err
	}
	if official.ID == 0 {
		return nil, nil
	}
	return &official, nil
}

func (r *repo) FindActiveByPosition(ctx context.Context, db *gorm.DB, position string) (*domain.Official, error) {
	var official domain.Official
	err := db.WithContext(ctx).Raw(
		`SELECT id, account_id, full_name, position, active, created_at, updated_at
		 FROM officials
		 WHERE position = ? AND active = ?
		 ORDER BY updated_at DESC
		 LIMIT 1`,
		position,
		true,
	).Scan(&official).Error
	if err != nil {
		return nil, err
	}
	if official.ID == 0 {
		return nil, nil
	}
	return &official, nil
}
