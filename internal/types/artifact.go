package types

import (
	"fmt"

	"github.com/google/uuid"
)

// ArtifactKind tags a named, versioned byproduct of a stage. An artifact of a
// given kind exists for a job exactly when the stage producing it has
// completed at least once; a later write of the same kind overwrites.
type ArtifactKind string

// Artifact kinds, in order of production along the generate pipeline.
const (
	KindExtractedContent ArtifactKind = "content"
	KindDraft            ArtifactKind = "draft"
	KindHumanized        ArtifactKind = "humanized"
	KindRenderedPDF      ArtifactKind = "pdf"
	KindRenderedDOCX     ArtifactKind = "docx"
)

// Key returns the store key for this artifact kind of the given job.
func (k ArtifactKind) Key(jobID uuid.UUID) string {
	return fmt.Sprintf("job:%s:%s", jobID, k)
}

// JobKey returns the store key of a job's record.
func JobKey(jobID uuid.UUID) string {
	return fmt.Sprintf("job:%s", jobID)
}

// RefImageKey returns the store key of the i-th reference image attached to
// a job at submission time.
func RefImageKey(jobID uuid.UUID, i int) string {
	return fmt.Sprintf("job:%s:ref_image:%d", jobID, i)
}
