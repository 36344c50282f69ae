package server

import (
	"net/http"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	offerdomain "github.com/planhaus/planhaus/internal/offer/domain"
	offerstepdomain "github.com/planhaus/planhaus/internal/offerstep/domain"
	"gorm.io/datatypes"
)

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return 0, offerdomain.ErrInvalidID
	}
	return id, nil
}

type createOfferBody struct {
	Title string `json:"title"`
}

func (s *Server) CreateOffer(c *gin.Context) {
	var body createOfferBody
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.offerSvc.Create(c.Request.Context(), offerdomain.CreateOfferRequest{
		Principal: principalFrom(c),
		Title:     body.Title,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) ListOffers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	resp, err := s.offerSvc.List(c.Request.Context(), offerdomain.ListOffersRequest{
		Principal: principalFrom(c),
		Limit:     limit,
		Cursor:    c.Query("cursor"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetOffer(c *gin.Context) {
	offerID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.offerSvc.Detail(c.Request.Context(), offerdomain.DetailRequest{
		Principal: principalFrom(c),
		OfferID:   offerID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type updateOfferBody struct {
	Title *string `json:"title"`
}

func (s *Server) UpdateOffer(c *gin.Context) {
	offerID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var body updateOfferBody
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.offerSvc.Update(c.Request.Context(), offerdomain.UpdateOfferRequest{
		Principal: principalFrom(c),
		OfferID:   offerID,
		Title:     body.Title,
	}); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type saveStepBody struct {
	StepKey string            `json:"step_key" binding:"required"`
	Data    datatypes.JSONMap `json:"data"`
}

func (s *Server) SaveOfferStep(c *gin.Context) {
	offerID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var body saveStepBody
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.stepSvc.SaveStep(c.Request.Context(), offerstepdomain.SaveStepRequest{
		Principal: principalFrom(c),
		OfferID:   offerID,
		StepKey:   body.StepKey,
		Data:      body.Data,
	}); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
