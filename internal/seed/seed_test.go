package seed

import (
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	certdomain "github.com/lingkodlabs/lingkod/internal/certificate/domain"
	doctypedomain "github.com/lingkodlabs/lingkod/internal/doctype/domain"
	"gorm.io/gorm"
)

func setupSeedDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&certdomain.StatusRecord{}, &doctypedomain.DocumentType{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestEnsureStatusVocabulary(t *testing.T) {
	db := setupSeedDB(t)

	if err := EnsureStatusVocabulary(db); err != nil {
		t.Fatalf("seed statuses: %v", err)
	}

	var count int64
	if err := db.Model(&certdomain.StatusRecord{}).Count(&count).Error; err != nil {
		t.Fatalf("count statuses: %v", err)
	}
	if int(count) != len(certdomain.AllStatuses()) {
		t.Fatalf("expected %d status rows, got %d", len(certdomain.AllStatuses()), count)
	}

	for _, status := range certdomain.AllStatuses() {
		var record certdomain.StatusRecord
		if err := db.First(&record, "name = ?", string(status)).Error; err != nil {
			t.Fatalf("status %s not seeded: %v", status, err)
		}
	}

	// Re-running must not duplicate rows.
	if err := EnsureStatusVocabulary(db); err != nil {
		t.Fatalf("re-seed statuses: %v", err)
	}
	if err := db.Model(&certdomain.StatusRecord{}).Count(&count).Error; err != nil {
		t.Fatalf("recount statuses: %v", err)
	}
	if int(count) != len(certdomain.AllStatuses()) {
		t.Fatalf("re-seed duplicated rows, got %d", count)
	}
}

func TestEnsureDefaultDocumentTypesKeepsOperatorEdits(t *testing.T) {
	db := setupSeedDB(t)

	if err := EnsureDefaultDocumentTypes(db); err != nil {
		t.Fatalf("seed document types: %v", err)
	}

	var clearance doctypedomain.DocumentType
	if err := db.First(&clearance, "code = ?", "BRGY_CLEARANCE").Error; err != nil {
		t.Fatalf("default type not seeded: %v", err)
	}

	clearance.Name = "Community Clearance"
	clearance.Active = false
	if err := db.Save(&clearance).Error; err != nil {
		t.Fatalf("rename type: %v", err)
	}

	if err := EnsureDefaultDocumentTypes(db); err != nil {
		t.Fatalf("re-seed document types: %v", err)
	}

	var after doctypedomain.DocumentType
	if err := db.First(&after, "code = ?", "BRGY_CLEARANCE").Error; err != nil {
		t.Fatalf("reload type: %v", err)
	}
	if after.Name != "Community Clearance" || after.Active {
		t.Fatalf("seed must not revert operator edits, got %+v", after)
	}
}
