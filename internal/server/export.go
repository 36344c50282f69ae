package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	exportdomain "github.com/planhaus/planhaus/internal/export/domain"
	plancheckdomain "github.com/planhaus/planhaus/internal/plancheck/domain"
)

func (s *Server) ExportOffer(c *gin.Context) {
	offerID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.exportSvc.Export(c.Request.Context(), exportdomain.ExportRequest{
		Principal: principalFrom(c),
		OfferID:   offerID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) ExportOfferURL(c *gin.Context) {
	offerID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.exportSvc.ExportURL(c.Request.Context(), exportdomain.ExportURLRequest{
		Principal: principalFrom(c),
		OfferID:   offerID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) ValidatePlan(c *gin.Context) {
	var body plancheckdomain.ValidateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	// Advisory check: always 200, fail-open on any internal error.
	verdict := s.planCheckSvc.Validate(c.Request.Context(), body)
	c.JSON(http.StatusOK, verdict)
}
