package jobs

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/jonathan/essayflow/internal/store"
	"github.com/jonathan/essayflow/internal/types"
)

// Artifacts stores and retrieves the byproducts stages leave behind: the
// extracted source text, structured essay versions, and rendered documents.
// Artifacts share the job's retention window.
type Artifacts struct {
	store store.Store
}

// NewArtifacts creates an Artifacts service backed by the given store.
func NewArtifacts(s store.Store) *Artifacts {
	return &Artifacts{store: s}
}

// SaveEssay persists a structured essay under the given kind.
func (a *Artifacts) SaveEssay(ctx context.Context, jobID uuid.UUID, kind types.ArtifactKind, essay *types.EssayOutput) error {
	data, err := json.Marshal(essay)
	if err != nil {
		return &StoreError{Op: "encode " + string(kind), JobID: jobID, Cause: err}
	}
	if err := a.store.Set(ctx, kind.Key(jobID), data, store.RetentionTTL); err != nil {
		return &StoreError{Op: "set " + string(kind), JobID: jobID, Cause: err}
	}
	return nil
}

// LoadEssay loads a structured essay of the given kind. Returns (nil, nil)
// when the artifact has not been produced.
func (a *Artifacts) LoadEssay(ctx context.Context, jobID uuid.UUID, kind types.ArtifactKind) (*types.EssayOutput, error) {
	data, err := a.store.Get(ctx, kind.Key(jobID))
	if err != nil {
		return nil, &StoreError{Op: "get " + string(kind), JobID: jobID, Cause: err}
	}
	if data == nil {
		return nil, nil
	}

	var essay types.EssayOutput
	if err := json.Unmarshal(data, &essay); err != nil {
		return nil, &StoreError{Op: "decode " + string(kind), JobID: jobID, Cause: err}
	}
	return &essay, nil
}

// LoadLatestEssay returns the humanized essay when present, falling back to
// the draft. The second return names which kind was found; it is empty when
// neither exists.
func (a *Artifacts) LoadLatestEssay(ctx context.Context, jobID uuid.UUID) (*types.EssayOutput, types.ArtifactKind, error) {
	essay, err := a.LoadEssay(ctx, jobID, types.KindHumanized)
	if err != nil {
		return nil, "", err
	}
	if essay != nil {
		return essay, types.KindHumanized, nil
	}

	essay, err = a.LoadEssay(ctx, jobID, types.KindDraft)
	if err != nil {
		return nil, "", err
	}
	if essay != nil {
		return essay, types.KindDraft, nil
	}
	return nil, "", nil
}

// SaveContent persists the extracted assignment text.
func (a *Artifacts) SaveContent(ctx context.Context, jobID uuid.UUID, text string) error {
	if err := a.store.Set(ctx, types.KindExtractedContent.Key(jobID), []byte(text), store.RetentionTTL); err != nil {
		return &StoreError{Op: "set content", JobID: jobID, Cause: err}
	}
	return nil
}

// LoadContent loads the extracted assignment text. Returns "" when absent.
func (a *Artifacts) LoadContent(ctx context.Context, jobID uuid.UUID) (string, error) {
	data, err := a.store.Get(ctx, types.KindExtractedContent.Key(jobID))
	if err != nil {
		return "", &StoreError{Op: "get content", JobID: jobID, Cause: err}
	}
	return string(data), nil
}

// SaveRendered persists a rendered document of the given kind.
func (a *Artifacts) SaveRendered(ctx context.Context, jobID uuid.UUID, kind types.ArtifactKind, data []byte) error {
	if err := a.store.Set(ctx, kind.Key(jobID), data, store.RetentionTTL); err != nil {
		return &StoreError{Op: "set " + string(kind), JobID: jobID, Cause: err}
	}
	return nil
}

// LoadRendered loads a rendered document. Returns (nil, nil) when absent.
func (a *Artifacts) LoadRendered(ctx context.Context, jobID uuid.UUID, kind types.ArtifactKind) ([]byte, error) {
	data, err := a.store.Get(ctx, kind.Key(jobID))
	if err != nil {
		return nil, &StoreError{Op: "get " + string(kind), JobID: jobID, Cause: err}
	}
	return data, nil
}

// SaveRefImage persists the i-th reference image attached at submission.
func (a *Artifacts) SaveRefImage(ctx context.Context, jobID uuid.UUID, i int, data []byte) error {
	if err := a.store.Set(ctx, types.RefImageKey(jobID, i), data, store.RetentionTTL); err != nil {
		return &StoreError{Op: "set ref image", JobID: jobID, Cause: err}
	}
	return nil
}

// LoadRefImage loads the i-th reference image. Returns (nil, nil) when
// absent.
func (a *Artifacts) LoadRefImage(ctx context.Context, jobID uuid.UUID, i int) ([]byte, error) {
	data, err := a.store.Get(ctx, types.RefImageKey(jobID, i))
	if err != nil {
		return nil, &StoreError{Op: "get ref image", JobID: jobID, Cause: err}
	}
	return data, nil
}
