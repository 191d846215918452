package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/lingkodlabs/lingkod/internal/certificate/domain"
	pkgdb "github.com/lingkodlabs/lingkod/pkg/db"
	"gorm.io/gorm"
)

func setupRepo(t *testing.T) (*gorm.DB, domain.Repository, *snowflake.Node) {
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
	if err := db.AutoMigrate(&domain.Request{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db, Provide(), node
}

func seedRequest(t *testing.T, db *gorm.DB, node *snowflake.Node, status domain.Status) *domain.Request {
	t.Helper()

	now := time.Now().UTC()
	request := &domain.Request{
		ID:               node.Generate(),
		ResidentID:       node.Generate(),
		DocumentTypeID:   node.Generate(),
		Purpose:          "employment",
		Quantity:         1,
		ControlNumber:    "CN-" + node.Generate().String(),
		Status:           status,
		SubmittedAt:      now,
		GenerationStatus: domain.GenerationNone,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := db.Create(request).Error; err != nil {
		t.Fatalf("seed request: %v", err)
	}
	return request
}

func TestInsertRejectsDuplicateControlNumber(t *testing.T) {
	dbh, repo, node := setupRepo(t)
	ctx := context.Background()

	now := time.Now().UTC()
	first := &domain.Request{
		ID:               node.Generate(),
		ResidentID:       node.Generate(),
		DocumentTypeID:   node.Generate(),
		Purpose:          "employment",
		Quantity:         1,
		ControlNumber:    "2026-03-0001",
		Status:           domain.StatusPending,
		SubmittedAt:      now,
		GenerationStatus: domain.GenerationNone,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := repo.Insert(ctx, dbh, first); err != nil {
		t.Fatalf("insert: %v", err)
	}

	second := *first
	second.ID = node.Generate()
	err := repo.Insert(ctx, dbh, &second)
	if !pkgdb.IsDuplicateKeyErr(err) {
		t.Fatalf("expected duplicate-key error for reused control number, got %v", err)
	}
}

func TestUpdateDecisionGuardedByStatus(t *testing.T) {
	db, repo, node := setupRepo(t)
	ctx := context.Background()
	request := seedRequest(t, db, node, domain.StatusPending)

	issued := time.Now().UTC()
	approve := domain.DecisionUpdate{
		Status:           domain.StatusApproved,
		ProcessedBy:      node.Generate(),
		IssuedDate:       &issued,
		GenerationStatus: domain.GenerationQueued,
	}
	if err := repo.UpdateDecision(ctx, db, request.ID, approve); err != nil {
		t.Fatalf("first decision: %v", err)
	}

	reason := "duplicate submission"
	reject := domain.DecisionUpdate{
		Status:       domain.StatusRejected,
		ProcessedBy:  node.Generate(),
		DeniedReason: &reason,
	}
	err := repo.UpdateDecision(ctx, db, request.ID, reject)
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("second decision must lose, got %v", err)
	}

	stored, err := repo.FindByID(ctx, db, request.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Status != domain.StatusApproved {
		t.Fatalf("losing decision must not overwrite the winner, got %s", stored.Status)
	}
	if stored.DeniedReason != nil {
		t.Fatalf("losing decision leaked its reason onto the row")
	}
}

func TestUpdateDecisionConcurrentSingleWinner(t *testing.T) {
	db, repo, node := setupRepo(t)
	ctx := context.Background()
	request := seedRequest(t, db, node, domain.StatusPending)

	const actors = 8
	var wg sync.WaitGroup
	errs := make([]error, actors)
	for i := 0; i < actors; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			issued := time.Now().UTC()
			errs[i] = repo.UpdateDecision(ctx, db, request.ID, domain.DecisionUpdate{
				Status:           domain.StatusApproved,
				ProcessedBy:      node.Generate(),
				IssuedDate:       &issued,
				GenerationStatus: domain.GenerationQueued,
			})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, domain.ErrInvalidTransition):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("exactly one decision may commit, got %d", winners)
	}
}

func TestUpdateReleaseGuardedByStatus(t *testing.T) {
	db, repo, node := setupRepo(t)
	ctx := context.Background()

	pending := seedRequest(t, db, node, domain.StatusPending)
	err := repo.UpdateRelease(ctx, db, pending.ID, domain.ReleaseUpdate{
		ReleasedBy:  node.Generate(),
		DateClaimed: time.Now().UTC(),
	})
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("pending request must not release, got %v", err)
	}

	approved := seedRequest(t, db, node, domain.StatusApproved)
	update := domain.ReleaseUpdate{
		ReleasedBy:  node.Generate(),
		DateClaimed: time.Now().UTC(),
	}
	if err := repo.UpdateRelease(ctx, db, approved.ID, update); err != nil {
		t.Fatalf("release: %v", err)
	}

	// Releasing again must fail: the row left APPROVED with the first call.
	err = repo.UpdateRelease(ctx, db, approved.ID, update)
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("double release must lose, got %v", err)
	}
}
