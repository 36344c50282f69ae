package domain

import "context"

type ValidateRequest struct {
	FileURL     string `json:"fileUrl,omitempty"`
	StoragePath string `json:"storagePath,omitempty"`
	MimeType    string `json:"mimeType"`
}

type ValidateResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// Classifier judges whether an image URL shows a usable floor plan.
type Classifier interface {
	Classify(ctx context.Context, imageURL string) (ValidateResponse, error)
}

// Service is the advisory plan check. It never blocks the user: any
// internal failure is treated as valid (fail-open), because this is not a
// security boundary.
type Service interface {
	Validate(ctx context.Context, req ValidateRequest) ValidateResponse
}
