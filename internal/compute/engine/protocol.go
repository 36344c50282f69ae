package engine

import "strings"

// Stage names with special meaning in the engine's output protocol.
const (
	StagePdfGeneration       = "pdf_generation"
	StageComputationComplete = "computation_complete"
)

const stageMarker = ">>> UI:STAGE:"

// Stage is one parsed progress marker from the engine's stdout.
type Stage struct {
	Name      string
	ImagePath string
}

// FinalArtifact reports whether a PDF relayed with this stage is the
// deliverable and must be registered as an offerPdf file.
func (s Stage) FinalArtifact() bool {
	return s.Name == StagePdfGeneration || s.Name == StageComputationComplete
}

// ParseStageLine recognizes the engine's line protocol:
//
//	>>> UI:STAGE:<stage-name>[|IMG:<local-file-path>]
//
// Any other line is free-form diagnostic output and is reported as not a
// stage. Segments are pipe-separated; a stage without a name is ignored.
func ParseStageLine(line string) (Stage, bool) {
	if !strings.Contains(line, stageMarker) {
		return Stage{}, false
	}

	var stage Stage
	for _, part := range strings.Split(line, "|") {
		if i := strings.Index(part, "UI:STAGE:"); i >= 0 {
			stage.Name = strings.TrimSpace(part[i+len("UI:STAGE:"):])
			continue
		}
		if i := strings.Index(part, "IMG:"); i >= 0 {
			stage.ImagePath = strings.TrimSpace(part[i+len("IMG:"):])
		}
	}
	if stage.Name == "" {
		return Stage{}, false
	}
	return stage, true
}
