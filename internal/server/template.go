package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	certtemplatedomain "github.com/lingkodlabs/lingkod/internal/certtemplate/domain"
)

func (s *Server) UploadTemplate(c *gin.Context) {
	docTypeID, err := parseDocumentTypeID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if _, err := s.docTypeSvc.FindByID(c.Request.Context(), docTypeID); err != nil {
		AbortWithError(c, err)
		return
	}

	file, err := c.FormFile("template")
	if err != nil {
		AbortWithError(c, newValidationError("template", "invalid_template", "template file is required"))
		return
	}
	if !strings.EqualFold(filepath.Ext(file.Filename), ".docx") {
		AbortWithError(c, newValidationError("template", "invalid_template", "template must be a .docx file"))
		return
	}

	if err := os.MkdirAll(s.cfg.TemplateDir(), 0o755); err != nil {
		AbortWithError(c, err)
		return
	}
	fileName := s.genID.Generate().String() + "-" + filepath.Base(file.Filename)
	filePath := filepath.Join(s.cfg.TemplateDir(), fileName)
	if err := c.SaveUploadedFile(file, filePath); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.templateSvc.Register(c.Request.Context(), certtemplatedomain.RegisterTemplateRequest{
		DocumentTypeID: docTypeID,
		FileName:       filepath.Base(file.Filename),
		FilePath:       filePath,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetActiveTemplate(c *gin.Context) {
	docTypeID, err := parseDocumentTypeID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.templateSvc.FindActiveByType(c.Request.Context(), docTypeID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func parseDocumentTypeID(c *gin.Context) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil || id == 0 {
		return 0, newValidationError("id", "invalid_id", "invalid id")
	}
	return id, nil
}
