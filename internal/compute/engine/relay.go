package engine

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/planhaus/planhaus/internal/providers/objectstore"
	"go.uber.org/zap"
)

// Artifact is a relayed engine output file.
type Artifact struct {
	URL         string
	StoragePath string
	Mime        string
	Caption     string
	Size        int64
}

// IsPdf reports whether the artifact is a PDF deliverable candidate.
func (a Artifact) IsPdf() bool {
	return a.Mime == "application/pdf" || strings.HasSuffix(a.Caption, ".pdf")
}

// Relay copies engine-produced local files into the object store. Failures
// are logged and reported as nil so a lost progress image never aborts a
// run.
type Relay struct {
	store objectstore.Store
	log   *zap.Logger
}

func NewRelay(store objectstore.Store, log *zap.Logger) *Relay {
	return &Relay{store: store, log: log.Named("compute.relay")}
}

// Upload stores a local engine artifact under a path namespaced by offer
// and timestamped to avoid collisions. Returns nil on any failure.
func (r *Relay) Upload(ctx context.Context, offerID snowflake.ID, localPath string) *Artifact {
	data, err := os.ReadFile(localPath)
	if err != nil {
		r.log.Warn("artifact read failed",
			zap.String("path", localPath),
			zap.Error(err))
		return nil
	}

	name := filepath.Base(localPath)
	contentType := mime.TypeByExtension(filepath.Ext(localPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	// Strip charset suffixes so mime comparisons stay exact.
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}

	storagePath := fmt.Sprintf("calc_runs/%s/%d_%s", offerID, time.Now().UnixMilli(), name)
	url, err := r.store.Upload(ctx, storagePath, bytes.NewReader(data), int64(len(data)), contentType)
	if err != nil {
		r.log.Warn("artifact upload failed",
			zap.String("path", localPath),
			zap.String("storage_path", storagePath),
			zap.Error(err))
		return nil
	}

	return &Artifact{
		URL:         url,
		StoragePath: storagePath,
		Mime:        contentType,
		Caption:     name,
		Size:        int64(len(data)),
	}
}
