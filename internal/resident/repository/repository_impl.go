package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/lingkodlabs/lingkod/internal/resident/domain"
	"gorm.io/gorm"
)

const residentColumns = `id, account_id, first_name, middle_name, last_name,
	house_no, street, purok, barangay, city, province, verified, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Resident, error) {
	var resident domain.Resident
	err := db.WithContext(ctx).Raw(
		`SELECT `+residentColumns+` FROM residents WHERE id = ?`,
		id,
	).Scan(&resident).Error
	if err != nil {
		return nil, err
	}
	if resident.ID == 0 {
		return nil, nil
	}
	return &resident, nil
}

func (r *repo) FindByAccount(ctx context.Context, db *gorm.DB, accountID string) (*domain.Resident, error) {
	var resident domain.Resident
	err := db.WithContext(ctx).Raw(
		`SELECT `+residentColumns+` FROM residents WHERE account_id = ?`,
		accountID,
	).Scan(&resident).Error
	if err != nil {
		return nil, err
	}
	if resident.ID == 0 {
		return nil, nil
	}
	return &resident, nil
}
