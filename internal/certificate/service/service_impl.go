package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bwmarrin/snowflake"
	attachmentdomain "github.com/lingkodlabs/lingkod/internal/attachment/domain"
	"github.com/lingkodlabs/lingkod/internal/certificate/domain"
	"github.com/lingkodlabs/lingkod/internal/clock"
	"github.com/lingkodlabs/lingkod/internal/config"
	doctypedomain "github.com/lingkodlabs/lingkod/internal/doctype/domain"
	officialdomain "github.com/lingkodlabs/lingkod/internal/official/domain"
	"github.com/lingkodlabs/lingkod/internal/providers/pdf"
	residentdomain "github.com/lingkodlabs/lingkod/internal/resident/domain"
	sequencedomain "github.com/lingkodlabs/lingkod/internal/sequence/domain"
	"github.com/lingkodlabs/lingkod/pkg/db"
	"github.com/lingkodlabs/lingkod/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	Cfg           config.Config
	Policy        *config.IssuancePolicyHolder
	Repo          domain.Repository
	GenID         *snowflake.Node
	Clock         clock.Clock
	SequenceSvc   sequencedomain.Service
	ResidentSvc   residentdomain.Service
	DocTypeSvc    doctypedomain.Service
	OfficialSvc   officialdomain.Service
	AttachmentSvc attachmentdomain.Service
	PDFProvider   pdf.Provider
	Generator     domain.Generator
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	cfg           config.Config
	policy        *config.IssuancePolicyHolder
	repo          domain.Repository
	genID         *snowflake.Node
	clock         clock.Clock
	sequenceSvc   sequencedomain.Service
	residentSvc   residentdomain.Service
	docTypeSvc    doctypedomain.Service
	officialSvc   officialdomain.Service
	attachmentSvc attachmentdomain.Service
	pdfProvider   pdf.Provider
	generator     domain.Generator
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("certificate"),
		cfg:           p.Cfg,
		policy:        p.Policy,
		repo:          p.Repo,
		genID:         p.GenID,
		clock:         p.Clock,
		sequenceSvc:   p.SequenceSvc,
		residentSvc:   p.ResidentSvc,
		docTypeSvc:    p.DocTypeSvc,
		officialSvc:   p.OfficialSvc,
		attachmentSvc: p.AttachmentSvc,
		pdfProvider:   p.PDFProvider,
		generator:     p.Generator,
	}
}

func (s *Service) Submit(ctx context.Context, req domain.SubmitRequest) (domain.Request, error) {
	purpose := strings.TrimSpace(req.Purpose)
	if purpose == "" {
		return domain.Request{}, domain.ErrInvalidPurpose
	}
	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 1 {
		return domain.Request{}, domain.ErrInvalidQuantity
	}

	requester, err := s.residentSvc.FindByAccount(ctx, req.RequesterAccountID)
	if err != nil {
		return domain.Request{}, err
	}
	if !requester.Verified {
		return domain.Request{}, residentdomain.ErrNotVerified
	}

	docType, err := s.docTypeSvc.FindByID(ctx, req.DocumentTypeID)
	if err != nil {
		return domain.Request{}, err
	}

	controlNumber, err := s.sequenceSvc.Allocate(ctx, docType.Code)
	if err != nil {
		return domain.Request{}, err
	}

	now := s.clock.Now()
	request := domain.Request{
		ID:               s.genID.Generate(),
		ResidentID:       requester.ID,
		DocumentTypeID:   docType.ID,
		Purpose:          purpose,
		Quantity:         quantity,
		ControlNumber:    controlNumber,
		Status:           domain.StatusPending,
		SubmittedAt:      now,
		GenerationStatus: domain.GenerationNone,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Insert(ctx, s.db, &request); err != nil {
		// A collision despite a fresh allocation is its own retriable
		// class: callers may retry allocate-and-create as a unit.
		if db.IsDuplicateKeyErr(err) {
			return domain.Request{}, fmt.Errorf("%w: %s", domain.ErrDuplicateControlNumber, controlNumber)
		}
		return domain.Request{}, err
	}

	s.log.Info("certificate request submitted",
		zap.String("request_id", request.ID.String()),
		zap.String("control_number", controlNumber),
		zap.String("document_type", docType.Code),
	)
	return request, nil
}

func (s *Service) Decide(ctx context.Context, req domain.DecideRequest) (domain.Request, error) {
	if req.Target != domain.StatusApproved && req.Target != domain.StatusRejected {
		return domain.Request{}, domain.ErrUnknownStatus
	}

	reason := strings.TrimSpace(req.DeniedReason)
	if req.Target == domain.StatusRejected && reason == "" {
		return domain.Request{}, domain.ErrReasonRequired
	}

	official, err := s.officialSvc.FindByAccount(ctx, req.ActorAccountID)
	if err != nil {
		return domain.Request{}, err
	}

	request, err := s.GetByID(ctx, req.RequestID)
	if err != nil {
		return domain.Request{}, err
	}
	if request.Status != domain.StatusPending {
		return domain.Request{}, fmt.Errorf("%w: %s request cannot be decided", domain.ErrInvalidTransition, request.Status)
	}

	update := domain.DecisionUpdate{
		Status:           req.Target,
		ProcessedBy:      official.ID,
		GenerationStatus: domain.GenerationNone,
	}
	if req.Target == domain.StatusApproved {
		issued := s.clock.Now()
		update.IssuedDate = &issued
		update.GenerationStatus = domain.GenerationQueued
	} else {
		update.DeniedReason = &reason
	}

	if err := s.repo.UpdateDecision(ctx, s.db, request.ID, update); err != nil {
		return domain.Request{}, err
	}

	request.Status = update.Status
	request.ProcessedBy = &official.ID
	request.IssuedDate = update.IssuedDate
	request.DeniedReason = update.DeniedReason
	request.GenerationStatus = update.GenerationStatus

	s.log.Info("certificate request decided",
		zap.String("request_id", request.ID.String()),
		zap.String("control_number", request.ControlNumber),
		zap.String("status", string(request.Status)),
		zap.String("processed_by", official.ID.String()),
	)

	// Generation is detached: the caller gets the committed state write,
	// not the pipeline outcome. Failures land on generation_status.
	if req.Target == domain.StatusApproved {
		s.generator.Enqueue(request.ID)
	}
	return *request, nil
}

func (s *Service) Release(ctx context.Context, req domain.ReleaseRequest) (domain.Request, error) {
	official, err := s.officialSvc.FindByAccount(ctx, req.ActorAccountID)
	if err != nil {
		return domain.Request{}, err
	}

	request, err := s.GetByID(ctx, req.RequestID)
	if err != nil {
		return domain.Request{}, err
	}
	if request.Status != domain.StatusApproved {
		return domain.Request{}, fmt.Errorf("%w: %s request cannot be released", domain.ErrInvalidTransition, request.Status)
	}

	if s.policy.Get().RequireAttachmentOnRelease {
		generated, err := s.attachmentSvc.FindByRequest(ctx, request.ID, attachmentdomain.FileTypeGenerated)
		if err != nil {
			return domain.Request{}, err
		}
		if generated == nil {
			return domain.Request{}, domain.ErrAttachmentRequired
		}
	}

	update := domain.ReleaseUpdate{
		ReleasedBy:  official.ID,
		DateClaimed: s.clock.Now(),
	}
	if err := s.repo.UpdateRelease(ctx, s.db, request.ID, update); err != nil {
		return domain.Request{}, err
	}

	request.Status = domain.StatusReleased
	request.ReleasedBy = &official.ID
	request.DateClaimed = &update.DateClaimed

	s.log.Info("certificate released",
		zap.String("request_id", request.ID.String()),
		zap.String("control_number", request.ControlNumber),
		zap.String("released_by", official.ID.String()),
	)

	// The claim slip is a convenience artifact; failing to produce one
	// never rolls back the release.
	if err := s.saveClaimSlip(ctx, request, official); err != nil {
		s.log.Warn("claim slip generation failed",
			zap.String("request_id", request.ID.String()),
			zap.Error(err),
		)
	}
	return *request, nil
}

func (s *Service) Regenerate(ctx context.Context, requestID snowflake.ID) (domain.Request, error) {
	request, err := s.GetByID(ctx, requestID)
	if err != nil {
		return domain.Request{}, err
	}
	if request.Status != domain.StatusApproved && request.Status != domain.StatusReleased {
		return domain.Request{}, fmt.Errorf("%w: %s request cannot be regenerated", domain.ErrInvalidTransition, request.Status)
	}

	if err := s.repo.UpdateGeneration(ctx, s.db, request.ID, domain.GenerationQueued, nil); err != nil {
		return domain.Request{}, err
	}
	request.GenerationStatus = domain.GenerationQueued
	request.GenerationError = nil

	s.log.Info("certificate regeneration queued",
		zap.String("request_id", request.ID.String()),
		zap.String("control_number", request.ControlNumber),
	)
	s.generator.Enqueue(request.ID)
	return *request, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	filter := domain.ListFilter{}
	if strings.TrimSpace(req.Status) != "" {
		status, err := domain.ParseStatus(req.Status)
		if err != nil {
			return domain.ListResponse{}, err
		}
		filter.Status = status
	}
	if strings.TrimSpace(req.RequesterAccountID) != "" {
		requester, err := s.residentSvc.FindByAccount(ctx, req.RequesterAccountID)
		if err != nil {
			return domain.ListResponse{}, err
		}
		filter.ResidentID = requester.ID
	}

	requests, err := s.repo.List(ctx, s.db, filter, req.Pagination)
	if err != nil {
		return domain.ListResponse{}, err
	}

	trimmed, pageInfo := pagination.BuildCursorPageInfo(requests, req.Pagination.Limit(), func(r *domain.Request) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{
			ID:          r.ID.String(),
			SubmittedAt: r.SubmittedAt.UTC().Format("2006-01-02 15:04:05.999999999"),
		})
		return token
	})
	return domain.ListResponse{PageInfo: *pageInfo, Requests: trimmed}, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Request, error) {
	request, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, domain.ErrNotFound
	}
	return request, nil
}

func (s *Service) saveClaimSlip(ctx context.Context, request *domain.Request, official *officialdomain.Official) error {
	resident, err := s.residentSvc.FindByID(ctx, request.ResidentID)
	if err != nil {
		return err
	}
	docType, err := s.docTypeSvc.FindByID(ctx, request.DocumentTypeID)
	if err != nil {
		return err
	}

	slip, err := s.pdfProvider.GenerateClaimSlip(ctx, pdf.ClaimSlipData{
		ControlNumber: request.ControlNumber,
		ResidentName:  resident.FullName(),
		DocumentName:  docType.Name,
		ReleasedBy:    official.FullName,
		ClaimDate:     s.clock.Now().Format("January 2, 2006"),
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.cfg.CertificateDir(), 0o755); err != nil {
		return err
	}
	fileName := request.ControlNumber + "-claimslip.pdf"
	filePath := filepath.Join(s.cfg.CertificateDir(), fileName)
	content, err := io.ReadAll(slip)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filePath, content, 0o644); err != nil {
		return err
	}

	if _, err := s.attachmentSvc.DeleteByRequest(ctx, request.ID, attachmentdomain.FileTypeClaimSlip); err != nil {
		return err
	}
	_, err = s.attachmentSvc.Save(ctx, attachmentdomain.SaveAttachmentRequest{
		RequestID: request.ID,
		FileName:  fileName,
		FilePath:  filePath,
		FileType:  attachmentdomain.FileTypeClaimSlip,
	})
	return err
}
