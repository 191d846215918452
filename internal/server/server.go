package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/lingkodlabs/lingkod/internal/attachment"
	attachmentdomain "github.com/lingkodlabs/lingkod/internal/attachment/domain"
	"github.com/lingkodlabs/lingkod/internal/authorization"
	"github.com/lingkodlabs/lingkod/internal/certificate"
	certdomain "github.com/lingkodlabs/lingkod/internal/certificate/domain"
	"github.com/lingkodlabs/lingkod/internal/certtemplate"
	certtemplatedomain "github.com/lingkodlabs/lingkod/internal/certtemplate/domain"
	"github.com/lingkodlabs/lingkod/internal/config"
	"github.com/lingkodlabs/lingkod/internal/converter"
	"github.com/lingkodlabs/lingkod/internal/doctype"
	doctypedomain "github.com/lingkodlabs/lingkod/internal/doctype/domain"
	"github.com/lingkodlabs/lingkod/internal/observability"
	obsmiddleware "github.com/lingkodlabs/lingkod/internal/observability/logger"
	obsmetrics "github.com/lingkodlabs/lingkod/internal/observability/metrics"
	obstracing "github.com/lingkodlabs/lingkod/internal/observability/tracing"
	"github.com/lingkodlabs/lingkod/internal/official"
	"github.com/lingkodlabs/lingkod/internal/pipeline"
	"github.com/lingkodlabs/lingkod/internal/providers"
	"github.com/lingkodlabs/lingkod/internal/render"
	"github.com/lingkodlabs/lingkod/internal/resident"
	residentdomain "github.com/lingkodlabs/lingkod/internal/resident/domain"
	"github.com/lingkodlabs/lingkod/internal/sequence"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	sequence.Module,
	certificate.Module,
	certtemplate.Module,
	doctype.Module,
	resident.Module,
	official.Module,
	attachment.Module,
	providers.Module,
	render.Module,
	converter.Module,
	pipeline.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	db             *gorm.DB
	genID          *snowflake.Node
	authzSvc       authorization.Service
	certificateSvc certdomain.Service
	attachmentSvc  attachmentdomain.Service
	docTypeSvc     doctypedomain.Service
	templateSvc    certtemplatedomain.Service
	residentSvc    residentdomain.Service
	converter      *converter.Supervisor
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	DB             *gorm.DB
	GenID          *snowflake.Node
	AuthzSvc       authorization.Service
	CertificateSvc certdomain.Service
	AttachmentSvc  attachmentdomain.Service
	DocTypeSvc     doctypedomain.Service
	TemplateSvc    certtemplatedomain.Service
	ResidentSvc    residentdomain.Service
	Converter      *converter.Supervisor
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		db:             p.DB,
		genID:          p.GenID,
		authzSvc:       p.AuthzSvc,
		certificateSvc: p.CertificateSvc,
		attachmentSvc:  p.AttachmentSvc,
		docTypeSvc:     p.DocTypeSvc,
		templateSvc:    p.TemplateSvc,
		residentSvc:    p.ResidentSvc,
		converter:      p.Converter,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1", s.ActorRequired())

	certificates := api.Group("/certificates")
	certificates.POST("",
		s.RequirePermission(authorization.ObjectCertificate, authorization.ActionCertificateSubmit),
		s.SubmitCertificate)
	certificates.GET("",
		s.RequirePermission(authorization.ObjectCertificate, authorization.ActionCertificateViewAll),
		s.ListCertificates)
	certificates.GET("/mine",
		s.RequirePermission(authorization.ObjectCertificate, authorization.ActionCertificateView),
		s.ListMyCertificates)
	certificates.GET("/:id",
		s.RequirePermission(authorization.ObjectCertificate, authorization.ActionCertificateView),
		s.GetCertificateByID)
	certificates.POST("/:id/decision",
		s.RequirePermission(authorization.ObjectCertificate, authorization.ActionCertificateDecide),
		s.DecideCertificate)
	certificates.POST("/:id/release",
		s.RequirePermission(authorization.ObjectCertificate, authorization.ActionCertificateRelease),
		s.ReleaseCertificate)
	certificates.POST("/:id/regenerate",
		s.RequirePermission(authorization.ObjectCertificate, authorization.ActionCertificateRegenerate),
		s.RegenerateCertificate)
	certificates.GET("/:id/attachment",
		s.RequirePermission(authorization.ObjectAttachment, authorization.ActionAttachmentDownload),
		s.DownloadCertificate)

	api.GET("/document-types",
		s.RequirePermission(authorization.ObjectDocumentType, authorization.ActionDocumentTypeView),
		s.ListDocumentTypes)
	api.POST("/document-types/:id/template",
		s.RequirePermission(authorization.ObjectTemplate, authorization.ActionTemplateUpload),
		s.UploadTemplate)
	api.GET("/document-types/:id/template",
		s.RequirePermission(authorization.ObjectTemplate, authorization.ActionTemplateView),
		s.GetActiveTemplate)
}
