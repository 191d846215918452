package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/lingkodlabs/lingkod/internal/certtemplate/domain"
	"github.com/lingkodlabs/lingkod/internal/certtemplate/repository"
	"github.com/lingkodlabs/lingkod/internal/clock"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTemplateService(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node, *clock.FakeClock) {
	t.Helper()

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

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
	if err := db.AutoMigrate(&domain.Template{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	clk := clock.NewFakeClock(time.Date(2026, time.March, 5, 9, 0, 0, 0, time.UTC))
	svc := New(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		Repo:  repository.Provide(),
		GenID: node,
		Clock: clk,
	})
	return svc, db, node, clk
}

func TestRegisterSupersedesPriorTemplate(t *testing.T) {
	svc, db, node, clk := setupTemplateService(t)
	ctx := context.Background()
	docTypeID := node.Generate()

	first, err := svc.Register(ctx, domain.RegisterTemplateRequest{
		DocumentTypeID: docTypeID,
		FileName:       "clearance-v1.docx",
		FilePath:       "/storage/templates/clearance-v1.docx",
	})
	if err != nil {
		t.Fatalf("register first: %v", err)
	}

	clk.Advance(time.Hour)
	second, err := svc.Register(ctx, domain.RegisterTemplateRequest{
		DocumentTypeID: docTypeID,
		FileName:       "clearance-v2.docx",
		FilePath:       "/storage/templates/clearance-v2.docx",
	})
	if err != nil {
		t.Fatalf("register second: %v", err)
	}

	active, err := svc.FindActiveByType(ctx, docTypeID)
	if err != nil {
		t.Fatalf("find active: %v", err)
	}
	if active.ID != second.ID {
		t.Fatalf("expected the newest upload to be active, got %s", active.FileName)
	}

	var activeCount int64
	if err := db.Model(&domain.Template{}).
		Where("document_type_id = ? AND active = ?", docTypeID, true).
		Count(&activeCount).Error; err != nil {
		t.Fatalf("count active: %v", err)
	}
	if activeCount != 1 {
		t.Fatalf("registration must deactivate prior rows, found %d active", activeCount)
	}

	var old domain.Template
	if err := db.First(&old, "id = ?", first.ID).Error; err != nil {
		t.Fatalf("reload first: %v", err)
	}
	if old.Active {
		t.Fatalf("superseded template must be inactive")
	}
}

func TestRegisterDoesNotTouchOtherTypes(t *testing.T) {
	svc, _, node, _ := setupTemplateService(t)
	ctx := context.Background()
	clearanceID := node.Generate()
	residencyID := node.Generate()

	if _, err := svc.Register(ctx, domain.RegisterTemplateRequest{
		DocumentTypeID: clearanceID,
		FileName:       "clearance.docx",
		FilePath:       "/storage/templates/clearance.docx",
	}); err != nil {
		t.Fatalf("register clearance: %v", err)
	}
	if _, err := svc.Register(ctx, domain.RegisterTemplateRequest{
		DocumentTypeID: residencyID,
		FileName:       "residency.docx",
		FilePath:       "/storage/templates/residency.docx",
	}); err != nil {
		t.Fatalf("register residency: %v", err)
	}

	if _, err := svc.FindActiveByType(ctx, clearanceID); err != nil {
		t.Fatalf("clearance template must stay active: %v", err)
	}
	if _, err := svc.FindActiveByType(ctx, residencyID); err != nil {
		t.Fatalf("residency template must stay active: %v", err)
	}
}

func TestRegisterValidatesInput(t *testing.T) {
	svc, _, node, _ := setupTemplateService(t)

	cases := []domain.RegisterTemplateRequest{
		{DocumentTypeID: 0, FileName: "a.docx", FilePath: "/tmp/a.docx"},
		{DocumentTypeID: node.Generate(), FileName: "  ", FilePath: "/tmp/a.docx"},
		{DocumentTypeID: node.Generate(), FileName: "a.docx", FilePath: ""},
	}
	for i, req := range cases {
		if _, err := svc.Register(context.Background(), req); !errors.Is(err, domain.ErrInvalidRequest) {
			t.Fatalf("case %d: expected ErrInvalidRequest, got %v", i, err)
		}
	}
}

func TestFindActiveByTypeNotFound(t *testing.T) {
	svc, _, node, _ := setupTemplateService(t)

	if _, err := svc.FindActiveByType(context.Background(), node.Generate()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
