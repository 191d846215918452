package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	attachmentdomain "github.com/lingkodlabs/lingkod/internal/attachment/domain"
	certdomain "github.com/lingkodlabs/lingkod/internal/certificate/domain"
	certtemplatedomain "github.com/lingkodlabs/lingkod/internal/certtemplate/domain"
	"github.com/lingkodlabs/lingkod/internal/clock"
	"github.com/lingkodlabs/lingkod/internal/config"
	"github.com/lingkodlabs/lingkod/internal/converter"
	doctypedomain "github.com/lingkodlabs/lingkod/internal/doctype/domain"
	"github.com/lingkodlabs/lingkod/internal/observability/metrics"
	officialdomain "github.com/lingkodlabs/lingkod/internal/official/domain"
	"github.com/lingkodlabs/lingkod/internal/render"
	residentdomain "github.com/lingkodlabs/lingkod/internal/resident/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// generateBudget bounds one full pipeline run, render and persistence
// included. The conversion step carries its own tighter timeout inside the
// converter queue.
const generateBudget = 5 * time.Minute

type GeneratorParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Cfg         config.Config
	Clock       clock.Clock
	Metrics     *metrics.PipelineMetrics `optional:"true"`
	Repo        certdomain.Repository
	ResidentSvc residentdomain.Service
	DocTypeSvc  doctypedomain.Service
	TemplateSvc certtemplatedomain.Service
	OfficialSvc officialdomain.Service
	AttachSvc   attachmentdomain.Service
	Renderer    render.Renderer
	Converter   *converter.Supervisor
}

// Generator drives the render-convert-store pipeline for approved requests.
// Enqueue spawns a detached run; the outcome is recorded on the request's
// generation columns so operators can retry via regenerate.
type Generator struct {
	db          *gorm.DB
	log         *zap.Logger
	cfg         config.Config
	clock       clock.Clock
	metrics     *metrics.PipelineMetrics
	repo        certdomain.Repository
	residentSvc residentdomain.Service
	docTypeSvc  doctypedomain.Service
	templateSvc certtemplatedomain.Service
	officialSvc officialdomain.Service
	attachSvc   attachmentdomain.Service
	renderer    render.Renderer
	converter   *converter.Supervisor
}

func NewGenerator(p GeneratorParam) *Generator {
	return &Generator{
		db:          p.DB,
		log:         p.Log.Named("pipeline"),
		cfg:         p.Cfg,
		clock:       p.Clock,
		metrics:     p.Metrics,
		repo:        p.Repo,
		residentSvc: p.ResidentSvc,
		docTypeSvc:  p.DocTypeSvc,
		templateSvc: p.TemplateSvc,
		officialSvc: p.OfficialSvc,
		attachSvc:   p.AttachSvc,
		renderer:    p.Renderer,
		converter:   p.Converter,
	}
}

func (g *Generator) Enqueue(requestID snowflake.ID) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), generateBudget)
		defer cancel()
		if err := g.Generate(ctx, requestID); err != nil {
			g.log.Error("certificate generation failed",
				zap.String("request_id", requestID.String()),
				zap.Error(err),
			)
		}
	}()
}

// Generate runs the full pipeline synchronously. Exposed for regeneration
// tooling and tests; API paths go through Enqueue.
func (g *Generator) Generate(ctx context.Context, requestID snowflake.ID) error {
	request, err := g.repo.FindByID(ctx, g.db, requestID)
	if err != nil {
		return err
	}
	if request == nil {
		return certdomain.ErrNotFound
	}
	if request.Status != certdomain.StatusApproved && request.Status != certdomain.StatusReleased {
		return fmt.Errorf("%w: cannot generate for %s request", certdomain.ErrInvalidTransition, request.Status)
	}

	if err := g.repo.UpdateGeneration(ctx, g.db, request.ID, certdomain.GenerationRunning, nil); err != nil {
		return err
	}

	started := g.clock.Now()
	pdfPath, renderData, err := g.run(ctx, request)
	elapsed := g.clock.Now().Sub(started)
	if err != nil {
		g.metrics.ObserveGeneration(metrics.OutcomeError, elapsed)
		msg := err.Error()
		if updateErr := g.repo.UpdateGeneration(ctx, g.db, request.ID, certdomain.GenerationFailed, &msg); updateErr != nil {
			g.log.Error("failed to record generation failure",
				zap.String("request_id", request.ID.String()),
				zap.Error(updateErr),
			)
		}
		return err
	}

	g.metrics.ObserveGeneration(metrics.OutcomeOK, elapsed)
	if err := g.repo.UpdateGeneration(ctx, g.db, request.ID, certdomain.GenerationDone, nil); err != nil {
		return err
	}

	g.log.Info("certificate generated",
		zap.String("request_id", request.ID.String()),
		zap.String("control_number", request.ControlNumber),
		zap.String("artifact", pdfPath),
		zap.Int("placeholders", len(renderData)),
		zap.Duration("elapsed", elapsed),
	)
	return nil
}

func (g *Generator) run(ctx context.Context, request *certdomain.Request) (string, map[string]string, error) {
	resident, err := g.residentSvc.FindByID(ctx, request.ResidentID)
	if err != nil {
		g.metrics.IncGenerationFailure(metrics.GenerationStageResolve)
		return "", nil, fmt.Errorf("resolve resident: %w", err)
	}
	docType, err := g.docTypeSvc.FindByID(ctx, request.DocumentTypeID)
	if err != nil {
		g.metrics.IncGenerationFailure(metrics.GenerationStageResolve)
		return "", nil, fmt.Errorf("resolve document type: %w", err)
	}
	tmpl, err := g.templateSvc.FindActiveByType(ctx, docType.ID)
	if err != nil {
		g.metrics.IncGenerationFailure(metrics.GenerationStageResolve)
		return "", nil, fmt.Errorf("resolve template: %w", err)
	}

	data := g.placeholderData(ctx, request, resident, docType)

	docxPath, err := g.renderer.RenderToFile(tmpl.FilePath, g.cfg.WorkingDir(), request.ControlNumber, data)
	if err != nil {
		g.metrics.IncGenerationFailure(metrics.GenerationStageRender)
		return "", nil, fmt.Errorf("render: %w", err)
	}

	if err := os.MkdirAll(g.cfg.CertificateDir(), 0o755); err != nil {
		g.metrics.IncGenerationFailure(metrics.GenerationStageConvert)
		return "", nil, err
	}
	select {
	case err = <-g.converter.Submit(docxPath, g.cfg.CertificateDir()):
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		g.metrics.IncGenerationFailure(metrics.GenerationStageConvert)
		return "", nil, fmt.Errorf("convert: %w", err)
	}

	pdfName := request.ControlNumber + ".pdf"
	pdfPath := filepath.Join(g.cfg.CertificateDir(), pdfName)
	if _, err := os.Stat(pdfPath); err != nil {
		g.metrics.IncGenerationFailure(metrics.GenerationStageConvert)
		return "", nil, fmt.Errorf("convert: missing output %s: %w", pdfName, err)
	}

	// Regeneration supersedes the earlier artifact row atomically enough
	// for a single-writer pipeline: delete then insert.
	if _, err := g.attachSvc.DeleteByRequest(ctx, request.ID, attachmentdomain.FileTypeGenerated); err != nil {
		g.metrics.IncGenerationFailure(metrics.GenerationStagePersist)
		return "", nil, fmt.Errorf("persist: %w", err)
	}
	if _, err := g.attachSvc.Save(ctx, attachmentdomain.SaveAttachmentRequest{
		RequestID:  request.ID,
		FileName:   pdfName,
		FilePath:   pdfPath,
		FileType:   attachmentdomain.FileTypeGenerated,
		RenderData: data,
	}); err != nil {
		g.metrics.IncGenerationFailure(metrics.GenerationStagePersist)
		return "", nil, fmt.Errorf("persist: %w", err)
	}

	return pdfPath, data, nil
}

func (g *Generator) placeholderData(ctx context.Context, request *certdomain.Request, resident *residentdomain.Resident, docType *doctypedomain.DocumentType) map[string]string {
	issued := g.clock.Now()
	if request.IssuedDate != nil {
		issued = *request.IssuedDate
	}

	data := map[string]string{
		"control_number":   request.ControlNumber,
		"resident_name":    resident.FullName(),
		"resident_address": resident.FullAddress(),
		"purpose":          request.Purpose,
		"quantity":         strconv.Itoa(request.Quantity),
		"document_name":    docType.Name,
		"issued_date":      issued.Format("January 2, 2006"),
		"barangay_name":    g.cfg.BarangayName,
		"city_province":    g.cfg.CityProvince,
	}

	captain, err := g.officialSvc.FindCaptain(ctx)
	if err != nil {
		if !errors.Is(err, officialdomain.ErrNotFound) {
			g.log.Warn("captain lookup failed", zap.Error(err))
		}
		return data
	}
	data["signatory_name"] = captain.FullName
	data["signatory_position"] = captain.Position
	return data
}
