package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Resident is the verified-constituent profile consumed by the issuance
// pipeline. Profile CRUD and census promotion live outside this repository;
// the pipeline only reads the fields it merges into certificates.
type Resident struct {
	ID         snowflake.ID `json:"id,string"`
	AccountID  string       `json:"account_id" gorm:"size:64;uniqueIndex"`
	FirstName  string       `json:"first_name"`
	MiddleName string       `json:"middle_name"`
	LastName   string       `json:"last_name"`
	HouseNo    string       `json:"house_no"`
	Street     string       `json:"street"`
	Purok      string       `json:"purok"`
	Barangay   string       `json:"barangay"`
	City       string       `json:"city"`
	Province   string       `json:"province"`
	Verified   bool         `json:"verified"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

func (Resident) TableName() string {
	return "residents"
}

func (r Resident) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{r.FirstName, r.MiddleName, r.LastName} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, " ")
}

func (r Resident) FullAddress() string {
	parts := make([]string, 0, 6)
	for _, p := range []string{r.HouseNo, r.Street, r.Purok, r.Barangay, r.City, r.Province} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, ", ")
}

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Resident, error)
	FindByAccount(ctx context.Context, db *gorm.DB, accountID string) (*Resident, error)
}

type Service interface {
	FindByID(ctx context.Context, id snowflake.ID) (*Resident, error)
	FindByAccount(ctx context.Context, accountID string) (*Resident, error)
}

var (
	ErrNotFound    = errors.New("resident_not_found")
	ErrNotVerified = errors.New("resident_not_verified")
)
