package service

import (
	"context"
	"strings"
	"time"

	"github.com/planhaus/planhaus/internal/plancheck/domain"
	"github.com/planhaus/planhaus/internal/providers/objectstore"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const signedURLExpiry = 60 * time.Second

type Params struct {
	fx.In

	Log        *zap.Logger
	Store      objectstore.Store
	Classifier domain.Classifier
}

type Service struct {
	log        *zap.Logger
	store      objectstore.Store
	classifier domain.Classifier
}

func New(p Params) domain.Service {
	return &Service{
		log:        p.Log.Named("plancheck.service"),
		store:      p.Store,
		classifier: p.Classifier,
	}
}

func (s *Service) Validate(ctx context.Context, req domain.ValidateRequest) domain.ValidateResponse {
	fileURL := req.FileURL
	if fileURL == "" && req.StoragePath != "" {
		url, err := s.store.SignedDownloadURL(ctx, req.StoragePath, signedURLExpiry)
		if err != nil {
			s.log.Warn("signed url for validation failed",
				zap.String("storage_path", req.StoragePath),
				zap.Error(err))
		} else {
			fileURL = url
		}
	}

	if fileURL == "" {
		return domain.ValidateResponse{Valid: true, Reason: "No URL available (Fail Open)"}
	}
	if !strings.HasPrefix(strings.ToLower(req.MimeType), "image/") {
		// PDFs and other formats are accepted without inspection.
		return domain.ValidateResponse{Valid: true, Reason: "Format accepted implicitly"}
	}

	verdict, err := s.classifier.Classify(ctx, fileURL)
	if err != nil {
		s.log.Warn("classifier failed, accepting plan", zap.Error(err))
		return domain.ValidateResponse{Valid: true, Reason: "Validation skipped due to error"}
	}

	if !verdict.Valid && req.StoragePath != "" {
		// Confirmed-bad upload: clean it up. Deletion failure is logged,
		// never surfaced.
		if err := s.store.Delete(ctx, req.StoragePath); err != nil {
			s.log.Warn("rejected plan cleanup failed",
				zap.String("storage_path", req.StoragePath),
				zap.Error(err))
		}
	}
	return verdict
}
