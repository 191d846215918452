package server

import (
	"github.com/gin-gonic/gin"
)

func (s *Server) DownloadCertificate(c *gin.Context) {
	request, err := s.loadVisibleRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	attachment, err := s.attachmentSvc.OpenForDownload(c.Request.Context(), request.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `inline; filename="`+attachment.FileName+`"`)
	c.File(attachment.FilePath)
}
