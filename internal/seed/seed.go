package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	certdomain "github.com/lingkodlabs/lingkod/internal/certificate/domain"
	doctypedomain "github.com/lingkodlabs/lingkod/internal/doctype/domain"
	"gorm.io/gorm"
)

var defaultDocumentTypes = []struct {
	Code string
	Name string
}{
	{Code: "BRGY_CLEARANCE", Name: "Barangay Clearance"},
	{Code: "CERT_RESIDENCY", Name: "Certificate of Residency"},
	{Code: "CERT_INDIGENCY", Name: "Certificate of Indigency"},
	{Code: "BUSINESS_PERMIT", Name: "Barangay Business Permit"},
}

// EnsureStatusVocabulary seeds the lifecycle status names consumed by the
// startup validation in the certificate module.
func EnsureStatusVocabulary(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, status := range certdomain.AllStatuses() {
			var record certdomain.StatusRecord
			err := tx.WithContext(ctx).Where("name = ?", string(status)).First(&record).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			record = certdomain.StatusRecord{
				ID:   node.Generate(),
				Name: string(status),
			}
			if err := tx.WithContext(ctx).Create(&record).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// EnsureDefaultDocumentTypes seeds the standard barangay document catalog.
// Existing codes are left untouched so operators can rename or deactivate
// them without the seed reverting their changes.
func EnsureDefaultDocumentTypes(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, entry := range defaultDocumentTypes {
			var docType doctypedomain.DocumentType
			err := tx.WithContext(ctx).Where("code = ?", entry.Code).First(&docType).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			now := time.Now().UTC()
			docType = doctypedomain.DocumentType{
				ID:        node.Generate(),
				Code:      entry.Code,
				Name:      entry.Name,
				Active:    true,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.WithContext(ctx).Create(&docType).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
