package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/lingkodlabs/lingkod/internal/authorization"
	certdomain "github.com/lingkodlabs/lingkod/internal/certificate/domain"
	residentdomain "github.com/lingkodlabs/lingkod/internal/resident/domain"
	"github.com/lingkodlabs/lingkod/pkg/db/pagination"
)

type submitCertificateRequest struct {
	DocumentTypeID string `json:"document_type_id"`
	Purpose        string `json:"purpose"`
	Quantity       int    `json:"quantity"`
}

func (s *Server) SubmitCertificate(c *gin.Context) {
	var req submitCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	docTypeID, err := snowflake.ParseString(strings.TrimSpace(req.DocumentTypeID))
	if err != nil || docTypeID == 0 {
		AbortWithError(c, newValidationError("document_type_id", "invalid_document_type_id", "invalid document_type_id"))
		return
	}

	resp, err := s.certificateSvc.Submit(c.Request.Context(), certdomain.SubmitRequest{
		RequesterAccountID: s.accountID(c),
		DocumentTypeID:     docTypeID,
		Purpose:            req.Purpose,
		Quantity:           req.Quantity,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListCertificates(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.certificateSvc.List(c.Request.Context(), certdomain.ListRequest{
		Pagination: query.Pagination,
		Status:     strings.TrimSpace(query.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListMyCertificates(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.certificateSvc.List(c.Request.Context(), certdomain.ListRequest{
		Pagination:         query.Pagination,
		Status:             strings.TrimSpace(query.Status),
		RequesterAccountID: s.accountID(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCertificateByID(c *gin.Context) {
	request, err := s.loadVisibleRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": request})
}

type decideCertificateRequest struct {
	Status       string `json:"status"`
	DeniedReason string `json:"denied_reason"`
}

func (s *Server) DecideCertificate(c *gin.Context) {
	requestID, err := parseRequestID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req decideCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	target, err := certdomain.ParseStatus(req.Status)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.certificateSvc.Decide(c.Request.Context(), certdomain.DecideRequest{
		RequestID:      requestID,
		Target:         target,
		DeniedReason:   req.DeniedReason,
		ActorAccountID: s.accountID(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ReleaseCertificate(c *gin.Context) {
	requestID, err := parseRequestID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.certificateSvc.Release(c.Request.Context(), certdomain.ReleaseRequest{
		RequestID:      requestID,
		ActorAccountID: s.accountID(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RegenerateCertificate(c *gin.Context) {
	requestID, err := parseRequestID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.certificateSvc.Regenerate(c.Request.Context(), requestID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func parseRequestID(c *gin.Context) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil || id == 0 {
		return 0, newValidationError("id", "invalid_id", "invalid id")
	}
	return id, nil
}

// loadVisibleRequest enforces ownership for residents: callers without the
// view_all capability only see their own requests.
func (s *Server) loadVisibleRequest(c *gin.Context) (*certdomain.Request, error) {
	requestID, err := parseRequestID(c)
	if err != nil {
		return nil, err
	}

	request, err := s.certificateSvc.GetByID(c.Request.Context(), requestID)
	if err != nil {
		return nil, err
	}

	accountID := s.accountID(c)
	if err := s.authzSvc.Authorize(c.Request.Context(), accountID, authorization.ObjectCertificate, authorization.ActionCertificateViewAll); err == nil {
		return request, nil
	} else if !errors.Is(err, authorization.ErrForbidden) {
		return nil, err
	}

	requester, err := s.residentSvc.FindByAccount(c.Request.Context(), accountID)
	if err != nil {
		if errors.Is(err, residentdomain.ErrNotFound) {
			return nil, ErrForbidden
		}
		return nil, err
	}
	if requester.ID != request.ResidentID {
		return nil, certdomain.ErrNotFound
	}
	return request, nil
}
