package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStageLine(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		wantOK    bool
		wantStage string
		wantImage string
	}{
		{
			name:      "stage only",
			line:      ">>> UI:STAGE:wall_detection",
			wantOK:    true,
			wantStage: "wall_detection",
		},
		{
			name:      "stage with image",
			line:      ">>> UI:STAGE:render|IMG:/tmp/job/render.png",
			wantOK:    true,
			wantStage: "render",
			wantImage: "/tmp/job/render.png",
		},
		{
			name:      "surrounded by noise",
			line:      "[runner] >>> UI:STAGE:pdf_generation|IMG:/tmp/out.pdf",
			wantOK:    true,
			wantStage: "pdf_generation",
			wantImage: "/tmp/out.pdf",
		},
		{
			name:      "whitespace trimmed",
			line:      ">>> UI:STAGE: scale_detection |IMG: /tmp/a.jpg ",
			wantOK:    true,
			wantStage: "scale_detection",
			wantImage: "/tmp/a.jpg",
		},
		{
			name:   "plain diagnostic line",
			line:   "loading model weights...",
			wantOK: false,
		},
		{
			name:   "marker without stage name",
			line:   ">>> UI:STAGE:",
			wantOK: false,
		},
		{
			name:   "empty line",
			line:   "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stage, ok := ParseStageLine(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				return
			}
			assert.Equal(t, tt.wantStage, stage.Name)
			assert.Equal(t, tt.wantImage, stage.ImagePath)
		})
	}
}

func TestStageFinalArtifact(t *testing.T) {
	assert.True(t, Stage{Name: StagePdfGeneration}.FinalArtifact())
	assert.True(t, Stage{Name: StageComputationComplete}.FinalArtifact())
	assert.False(t, Stage{Name: "wall_detection"}.FinalArtifact())
}
