package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	offerfiledomain "github.com/planhaus/planhaus/internal/offerfile/domain"
	"gorm.io/datatypes"
)

type presignBody struct {
	Filename string `json:"filename" binding:"required"`
}

func (s *Server) PresignOfferFile(c *gin.Context) {
	offerID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var body presignBody
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.fileSvc.Presign(c.Request.Context(), offerfiledomain.PresignRequest{
		Principal: principalFrom(c),
		OfferID:   offerID,
		Filename:  body.Filename,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type registerFileBody struct {
	StoragePath string            `json:"storage_path" binding:"required"`
	Meta        datatypes.JSONMap `json:"meta"`
}

func (s *Server) RegisterOfferFile(c *gin.Context) {
	offerID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var body registerFileBody
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.fileSvc.Register(c.Request.Context(), offerfiledomain.RegisterRequest{
		Principal:   principalFrom(c),
		OfferID:     offerID,
		StoragePath: body.StoragePath,
		Meta:        body.Meta,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}
