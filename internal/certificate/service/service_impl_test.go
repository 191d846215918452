package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	attachmentdomain "github.com/lingkodlabs/lingkod/internal/attachment/domain"
	attachmentrepo "github.com/lingkodlabs/lingkod/internal/attachment/repository"
	attachmentservice "github.com/lingkodlabs/lingkod/internal/attachment/service"
	"github.com/lingkodlabs/lingkod/internal/certificate/domain"
	"github.com/lingkodlabs/lingkod/internal/certificate/repository"
	"github.com/lingkodlabs/lingkod/internal/clock"
	"github.com/lingkodlabs/lingkod/internal/config"
	doctypedomain "github.com/lingkodlabs/lingkod/internal/doctype/domain"
	officialdomain "github.com/lingkodlabs/lingkod/internal/official/domain"
	"github.com/lingkodlabs/lingkod/internal/providers/pdf"
	residentdomain "github.com/lingkodlabs/lingkod/internal/resident/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type sequenceStub struct {
	mu   sync.Mutex
	next int
	err  error
}

func (s *sequenceStub) Allocate(ctx context.Context, documentTypeCode string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return fmt.Sprintf("2026-03-%04d", s.next), nil
}

type residentStub struct {
	residents map[string]*residentdomain.Resident
}

func (s *residentStub) FindByID(ctx context.Context, id snowflake.ID) (*residentdomain.Resident, error) {
	for _, r := range s.residents {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, residentdomain.ErrNotFound
}

func (s *residentStub) FindByAccount(ctx context.Context, accountID string) (*residentdomain.Resident, error) {
	if r, ok := s.residents[accountID]; ok {
		return r, nil
	}
	return nil, residentdomain.ErrNotFound
}

type doctypeStub struct {
	docType *doctypedomain.DocumentType
}

func (s *doctypeStub) FindByID(ctx context.Context, id snowflake.ID) (*doctypedomain.DocumentType, error) {
	if s.docType != nil && s.docType.ID == id {
		return s.docType, nil
	}
	return nil, doctypedomain.ErrNotFound
}

func (s *doctypeStub) FindAll(ctx context.Context) ([]doctypedomain.DocumentType, error) {
	if s.docType == nil {
		return nil, nil
	}
	return []doctypedomain.DocumentType{*s.docType}, nil
}

type officialStub struct {
	officials map[string]*officialdomain.Official
}

func (s *officialStub) FindByAccount(ctx context.Context, accountID string) (*officialdomain.Official, error) {
	if o, ok := s.officials[accountID]; ok {
		return o, nil
	}
	return nil, officialdomain.ErrNotFound
}

func (s *officialStub) FindCaptain(ctx context.Context) (*officialdomain.Official, error) {
	for _, o := range s.officials {
		if o.Position == officialdomain.PositionCaptain {
			return o, nil
		}
	}
	return nil, officialdomain.ErrNotFound
}

type generatorStub struct {
	mu       sync.Mutex
	enqueued []snowflake.ID
}

func (g *generatorStub) Enqueue(requestID snowflake.ID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.enqueued = append(g.enqueued, requestID)
}

func (g *generatorStub) Enqueued() []snowflake.ID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]snowflake.ID(nil), g.enqueued...)
}

type pdfStub struct{}

func (p *pdfStub) GenerateClaimSlip(ctx context.Context, data pdf.ClaimSlipData) (io.Reader, error) {
	return bytes.NewReader([]byte("%PDF-1.4 claim slip")), nil
}

type lifecycleFixture struct {
	svc       domain.Service
	db        *gorm.DB
	generator *generatorStub
	resident  *residentdomain.Resident
	docType   *doctypedomain.DocumentType
	staff     *officialdomain.Official
	clock     *clock.FakeClock
}

func setupLifecycle(t *testing.T, policy config.IssuancePolicy) *lifecycleFixture {
	t.Helper()

	node := mustNode(t)

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

	if err := db.AutoMigrate(&domain.Request{}, &attachmentdomain.Attachment{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	clk := clock.NewFakeClock(time.Date(2026, time.March, 5, 9, 0, 0, 0, time.UTC))

	resident := &residentdomain.Resident{
		ID:        node.Generate(),
		AccountID: "acct-resident",
		FirstName: "Juan",
		LastName:  "Dela Cruz",
		Purok:     "Purok 3",
		Barangay:  "San Isidro",
		Verified:  true,
	}
	docType := &doctypedomain.DocumentType{
		ID:     node.Generate(),
		Code:   "BRGY_CLEARANCE",
		Name:   "Barangay Clearance",
		Active: true,
	}
	staff := &officialdomain.Official{
		ID:        node.Generate(),
		AccountID: "acct-staff",
		FullName:  "Maria Santos",
		Position:  "Barangay Secretary",
		Active:    true,
	}
	captain := &officialdomain.Official{
		ID:        node.Generate(),
		AccountID: "acct-captain",
		FullName:  "Pedro Reyes",
		Position:  officialdomain.PositionCaptain,
		Active:    true,
	}

	cfg := config.Config{StorageDir: t.TempDir()}
	attachSvc := attachmentservice.New(attachmentservice.ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		Repo:  attachmentrepo.Provide(),
		GenID: node,
		Clock: clk,
	})

	generator := &generatorStub{}
	svc := NewService(ServiceParam{
		DB:     db,
		Log:    zap.NewNop(),
		Cfg:    cfg,
		Policy: config.NewStaticIssuancePolicyHolder(policy),
		Repo:   repository.Provide(),
		GenID:  node,
		Clock:  clk,
		SequenceSvc: &sequenceStub{},
		ResidentSvc: &residentStub{residents: map[string]*residentdomain.Resident{
			resident.AccountID: resident,
		}},
		DocTypeSvc: &doctypeStub{docType: docType},
		OfficialSvc: &officialStub{officials: map[string]*officialdomain.Official{
			staff.AccountID:   staff,
			captain.AccountID: captain,
		}},
		AttachmentSvc: attachSvc,
		PDFProvider:   &pdfStub{},
		Generator:     generator,
	})

	return &lifecycleFixture{
		svc:       svc,
		db:        db,
		generator: generator,
		resident:  resident,
		docType:   docType,
		staff:     staff,
		clock:     clk,
	}
}

func (f *lifecycleFixture) submit(t *testing.T) domain.Request {
	t.Helper()
	request, err := f.svc.Submit(context.Background(), domain.SubmitRequest{
		RequesterAccountID: f.resident.AccountID,
		DocumentTypeID:     f.docType.ID,
		Purpose:            "employment",
		Quantity:           1,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return request
}

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return node
}

func TestSubmitCreatesPendingRequest(t *testing.T) {
	f := setupLifecycle(t, config.DefaultIssuancePolicy())
	request := f.submit(t)

	if request.Status != domain.StatusPending {
		t.Fatalf("expected PENDING, got %s", request.Status)
	}
	if request.ControlNumber != "2026-03-0001" {
		t.Fatalf("unexpected control number %s", request.ControlNumber)
	}
	if request.IssuedDate != nil {
		t.Fatalf("issued date must be empty before approval")
	}

	stored, err := f.svc.GetByID(context.Background(), request.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if stored.ControlNumber != request.ControlNumber {
		t.Fatalf("stored request mismatch")
	}
}

func TestSubmitRejectsUnverifiedResident(t *testing.T) {
	f := setupLifecycle(t, config.DefaultIssuancePolicy())
	f.resident.Verified = false

	_, err := f.svc.Submit(context.Background(), domain.SubmitRequest{
		RequesterAccountID: f.resident.AccountID,
		DocumentTypeID:     f.docType.ID,
		Purpose:            "employment",
	})
	if !errors.Is(err, residentdomain.ErrNotVerified) {
		t.Fatalf("expected ErrNotVerified, got %v", err)
	}
}

func TestSubmitRejectsEmptyPurpose(t *testing.T) {
	f := setupLifecycle(t, config.DefaultIssuancePolicy())

	_, err := f.svc.Submit(context.Background(), domain.SubmitRequest{
		RequesterAccountID: f.resident.AccountID,
		DocumentTypeID:     f.docType.ID,
		Purpose:            "   ",
	})
	if !errors.Is(err, domain.ErrInvalidPurpose) {
		t.Fatalf("expected ErrInvalidPurpose, got %v", err)
	}
}

func TestApproveSetsIssuedDateAndEnqueuesGeneration(t *testing.T) {
	f := setupLifecycle(t, config.DefaultIssuancePolicy())
	request := f.submit(t)

	decided, err := f.svc.Decide(context.Background(), domain.DecideRequest{
		RequestID:      request.ID,
		Target:         domain.StatusApproved,
		ActorAccountID: f.staff.AccountID,
	})
	if err != nil {
		t.Fatalf("decide: %v", err)
	}

	if decided.Status != domain.StatusApproved {
		t.Fatalf("expected APPROVED, got %s", decided.Status)
	}
	if decided.IssuedDate == nil {
		t.Fatalf("approval must set issued date")
	}
	if decided.ProcessedBy == nil || *decided.ProcessedBy != f.staff.ID {
		t.Fatalf("approval must record the deciding official")
	}
	if decided.GenerationStatus != domain.GenerationQueued {
		t.Fatalf("expected queued generation, got %s", decided.GenerationStatus)
	}
	if enqueued := f.generator.Enqueued(); len(enqueued) != 1 || enqueued[0] != request.ID {
		t.Fatalf("expected one enqueued generation for %s, got %v", request.ID, enqueued)
	}
}

func TestRejectRequiresReason(t *testing.T) {
	f := setupLifecycle(t, config.DefaultIssuancePolicy())
	request := f.submit(t)

	_, err := f.svc.Decide(context.Background(), domain.DecideRequest{
		RequestID:      request.ID,
		Target:         domain.StatusRejected,
		ActorAccountID: f.staff.AccountID,
	})
	if !errors.Is(err, domain.ErrReasonRequired) {
		t.Fatalf("expected ErrReasonRequired, got %v", err)
	}

	rejected, err := f.svc.Decide(context.Background(), domain.DecideRequest{
		RequestID:      request.ID,
		Target:         domain.StatusRejected,
		DeniedReason:   "incomplete records",
		ActorAccountID: f.staff.AccountID,
	})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != domain.StatusRejected {
		t.Fatalf("expected REJECTED, got %s", rejected.Status)
	}
	if rejected.IssuedDate != nil {
		t.Fatalf("rejection must not set issued date")
	}
	if rejected.DeniedReason == nil || *rejected.DeniedReason != "incomplete records" {
		t.Fatalf("rejection must record the reason")
	}
	if enqueued := f.generator.Enqueued(); len(enqueued) != 0 {
		t.Fatalf("rejection must not enqueue generation")
	}
}

func TestDecideOnlyFromPending(t *testing.T) {
	f := setupLifecycle(t, config.DefaultIssuancePolicy())
	request := f.submit(t)

	if _, err := f.svc.Decide(context.Background(), domain.DecideRequest{
		RequestID:      request.ID,
		Target:         domain.StatusApproved,
		ActorAccountID: f.staff.AccountID,
	}); err != nil {
		t.Fatalf("approve: %v", err)
	}

	_, err := f.svc.Decide(context.Background(), domain.DecideRequest{
		RequestID:      request.ID,
		Target:         domain.StatusRejected,
		DeniedReason:   "changed my mind",
		ActorAccountID: f.staff.AccountID,
	})
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestDecideRejectsUnknownTarget(t *testing.T) {
	f := setupLifecycle(t, config.DefaultIssuancePolicy())
	request := f.submit(t)

	_, err := f.svc.Decide(context.Background(), domain.DecideRequest{
		RequestID:      request.ID,
		Target:         domain.StatusReleased,
		ActorAccountID: f.staff.AccountID,
	})
	if !errors.Is(err, domain.ErrUnknownStatus) {
		t.Fatalf("expected ErrUnknownStatus, got %v", err)
	}
}

func TestReleaseHappyPath(t *testing.T) {
	f := setupLifecycle(t, config.DefaultIssuancePolicy())
	request := f.submit(t)

	if _, err := f.svc.Decide(context.Background(), domain.DecideRequest{
		RequestID:      request.ID,
		Target:         domain.StatusApproved,
		ActorAccountID: f.staff.AccountID,
	}); err != nil {
		t.Fatalf("approve: %v", err)
	}

	released, err := f.svc.Release(context.Background(), domain.ReleaseRequest{
		RequestID:      request.ID,
		ActorAccountID: f.staff.AccountID,
	})
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if released.Status != domain.StatusReleased {
		t.Fatalf("expected RELEASED, got %s", released.Status)
	}
	if released.DateClaimed == nil {
		t.Fatalf("release must record the claim date")
	}
	if released.ReleasedBy == nil || *released.ReleasedBy != f.staff.ID {
		t.Fatalf("release must record the releasing official")
	}

	var slip attachmentdomain.Attachment
	if err := f.db.First(&slip, "request_id = ? AND file_type = ?", request.ID, attachmentdomain.FileTypeClaimSlip).Error; err != nil {
		t.Fatalf("release must store a claim slip: %v", err)
	}
}

func TestReleaseOnlyFromApproved(t *testing.T) {
	f := setupLifecycle(t, config.DefaultIssuancePolicy())
	request := f.submit(t)

	_, err := f.svc.Release(context.Background(), domain.ReleaseRequest{
		RequestID:      request.ID,
		ActorAccountID: f.staff.AccountID,
	})
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestReleaseRequiresAttachmentWhenPolicySet(t *testing.T) {
	policy := config.DefaultIssuancePolicy()
	policy.RequireAttachmentOnRelease = true
	f := setupLifecycle(t, policy)
	request := f.submit(t)

	if _, err := f.svc.Decide(context.Background(), domain.DecideRequest{
		RequestID:      request.ID,
		Target:         domain.StatusApproved,
		ActorAccountID: f.staff.AccountID,
	}); err != nil {
		t.Fatalf("approve: %v", err)
	}

	_, err := f.svc.Release(context.Background(), domain.ReleaseRequest{
		RequestID:      request.ID,
		ActorAccountID: f.staff.AccountID,
	})
	if !errors.Is(err, domain.ErrAttachmentRequired) {
		t.Fatalf("expected ErrAttachmentRequired, got %v", err)
	}
}

func TestListFiltersAndPaginates(t *testing.T) {
	f := setupLifecycle(t, config.DefaultIssuancePolicy())

	var ids []snowflake.ID
	for i := 0; i < 5; i++ {
		request := f.submit(t)
		ids = append(ids, request.ID)
		f.clock.Advance(time.Minute)
	}

	if _, err := f.svc.Decide(context.Background(), domain.DecideRequest{
		RequestID:      ids[0],
		Target:         domain.StatusApproved,
		ActorAccountID: f.staff.AccountID,
	}); err != nil {
		t.Fatalf("approve: %v", err)
	}

	pending, err := f.svc.List(context.Background(), domain.ListRequest{Status: "pending"})
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending.Requests) != 4 {
		t.Fatalf("expected 4 pending requests, got %d", len(pending.Requests))
	}

	approved, err := f.svc.List(context.Background(), domain.ListRequest{Status: "APPROVED"})
	if err != nil {
		t.Fatalf("list approved: %v", err)
	}
	if len(approved.Requests) != 1 || approved.Requests[0].ID != ids[0] {
		t.Fatalf("expected the approved request only")
	}

	_, err = f.svc.List(context.Background(), domain.ListRequest{Status: "bogus"})
	if !errors.Is(err, domain.ErrUnknownStatus) {
		t.Fatalf("expected ErrUnknownStatus for bogus filter, got %v", err)
	}
}

func TestRegenerateRequeuesApprovedRequest(t *testing.T) {
	f := setupLifecycle(t, config.DefaultIssuancePolicy())
	request := f.submit(t)

	if _, err := f.svc.Regenerate(context.Background(), request.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("pending request must not regenerate, got %v", err)
	}

	if _, err := f.svc.Decide(context.Background(), domain.DecideRequest{
		RequestID:      request.ID,
		Target:         domain.StatusApproved,
		ActorAccountID: f.staff.AccountID,
	}); err != nil {
		t.Fatalf("approve: %v", err)
	}

	regen, err := f.svc.Regenerate(context.Background(), request.ID)
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if regen.GenerationStatus != domain.GenerationQueued {
		t.Fatalf("expected queued generation, got %s", regen.GenerationStatus)
	}
	if enqueued := f.generator.Enqueued(); len(enqueued) != 2 {
		t.Fatalf("expected approval and regenerate enqueues, got %d", len(enqueued))
	}
}

func TestGetByIDNotFound(t *testing.T) {
	f := setupLifecycle(t, config.DefaultIssuancePolicy())

	_, err := f.svc.GetByID(context.Background(), snowflake.ID(12345))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
