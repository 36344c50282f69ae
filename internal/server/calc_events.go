package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	calceventdomain "github.com/planhaus/planhaus/internal/calcevent/domain"
)

func (s *Server) ListCalcEvents(c *gin.Context) {
	runID, err := parseID(c.Query("run_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	sinceID, _ := strconv.ParseInt(c.Query("sinceId"), 10, 64)
	limit, _ := strconv.Atoi(c.Query("limit"))

	resp, err := s.eventSvc.List(c.Request.Context(), calceventdomain.ListRequest{
		Principal: principalFrom(c),
		RunID:     runID,
		SinceID:   sinceID,
		Limit:     limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) CalcEventHistory(c *gin.Context) {
	offerID, err := parseID(c.Query("offer_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.eventSvc.History(c.Request.Context(), calceventdomain.HistoryRequest{
		Principal: principalFrom(c),
		OfferID:   offerID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
