package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	computedomain "github.com/planhaus/planhaus/internal/compute/domain"
	"gorm.io/datatypes"
)

func (s *Server) StartCompute(c *gin.Context) {
	offerID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.computeSvc.Start(c.Request.Context(), computedomain.StartRequest{
		Principal: principalFrom(c),
		OfferID:   offerID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type finishOkBody struct {
	RunID  string            `json:"run_id" binding:"required"`
	Result datatypes.JSONMap `json:"result"`
}

func (s *Server) FinishComputeOk(c *gin.Context) {
	offerID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var body finishOkBody
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	runID, err := parseID(body.RunID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.computeSvc.FinishOk(c.Request.Context(), computedomain.FinishOkRequest{
		Principal: principalFrom(c),
		OfferID:   offerID,
		RunID:     runID,
		Result:    body.Result,
	}); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type finishFailBody struct {
	RunID   string            `json:"run_id" binding:"required"`
	Message string            `json:"message"`
	Error   datatypes.JSONMap `json:"error"`
}

func (s *Server) FinishComputeFail(c *gin.Context) {
	offerID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var body finishFailBody
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	runID, err := parseID(body.RunID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	message := body.Message
	if message == "" && body.Error != nil {
		if m, ok := body.Error["message"].(string); ok {
			message = m
		}
	}

	if err := s.computeSvc.FinishFail(c.Request.Context(), computedomain.FinishFailRequest{
		Principal: principalFrom(c),
		OfferID:   offerID,
		RunID:     runID,
		Message:   message,
		Detail:    body.Error,
	}); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type cancelBody struct {
	RunID string `json:"run_id" binding:"required"`
}

func (s *Server) CancelCompute(c *gin.Context) {
	offerID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var body cancelBody
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	runID, err := parseID(body.RunID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.computeSvc.Cancel(c.Request.Context(), computedomain.CancelRequest{
		Principal: principalFrom(c),
		OfferID:   offerID,
		RunID:     runID,
	}); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
