package jobs

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/essayflow/internal/store"
	"github.com/jonathan/essayflow/internal/types"
)

func sampleEssay(title string) *types.EssayOutput {
	return &types.EssayOutput{
		Title:           title,
		ThesisStatement: "Cities reshape the ecosystems they displace.",
		Introduction:    "Urban growth has accelerated over the last century.",
		BodySections: []types.EssaySection{
			{Title: "Habitat Loss", Content: "Expansion consumes wetlands and forests."},
		},
		Conclusion: "Planning must account for ecological cost.",
		References: []string{"Doe, J. (2021). Urban Ecology. City Press."},
	}
}

func TestArtifacts_SaveAndLoadEssay(t *testing.T) {
	ctx := context.Background()
	artifacts := NewArtifacts(store.NewMemory())
	jobID := uuid.New()

	require.NoError(t, artifacts.SaveEssay(ctx, jobID, types.KindDraft, sampleEssay("Draft")))

	loaded, err := artifacts.LoadEssay(ctx, jobID, types.KindDraft)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "Draft", loaded.Title)
	assert.Len(t, loaded.BodySections, 1)
}

func TestArtifacts_LoadEssayAbsent(t *testing.T) {
	ctx := context.Background()
	artifacts := NewArtifacts(store.NewMemory())

	loaded, err := artifacts.LoadEssay(ctx, uuid.New(), types.KindDraft)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestArtifacts_LoadLatestEssayPrefersHumanized(t *testing.T) {
	ctx := context.Background()
	artifacts := NewArtifacts(store.NewMemory())
	jobID := uuid.New()

	require.NoError(t, artifacts.SaveEssay(ctx, jobID, types.KindDraft, sampleEssay("Draft")))
	require.NoError(t, artifacts.SaveEssay(ctx, jobID, types.KindHumanized, sampleEssay("Humanized")))

	essay, kind, err := artifacts.LoadLatestEssay(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, types.KindHumanized, kind)
	assert.Equal(t, "Humanized", essay.Title)
}

func TestArtifacts_LoadLatestEssayFallsBackToDraft(t *testing.T) {
	ctx := context.Background()
	artifacts := NewArtifacts(store.NewMemory())
	jobID := uuid.New()

	require.NoError(t, artifacts.SaveEssay(ctx, jobID, types.KindDraft, sampleEssay("Draft")))

	essay, kind, err := artifacts.LoadLatestEssay(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, types.KindDraft, kind)
	assert.Equal(t, "Draft", essay.Title)
}

func TestArtifacts_LoadLatestEssayAbsent(t *testing.T) {
	ctx := context.Background()
	artifacts := NewArtifacts(store.NewMemory())

	essay, kind, err := artifacts.LoadLatestEssay(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, essay)
	assert.Empty(t, kind)
}

func TestArtifacts_Content(t *testing.T) {
	ctx := context.Background()
	artifacts := NewArtifacts(store.NewMemory())
	jobID := uuid.New()

	require.NoError(t, artifacts.SaveContent(ctx, jobID, "extracted assignment text"))

	text, err := artifacts.LoadContent(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, "extracted assignment text", text)
}

func TestArtifacts_Rendered(t *testing.T) {
	ctx := context.Background()
	artifacts := NewArtifacts(store.NewMemory())
	jobID := uuid.New()

	pdf := []byte("%PDF-1.4 fake")
	require.NoError(t, artifacts.SaveRendered(ctx, jobID, types.KindRenderedPDF, pdf))

	loaded, err := artifacts.LoadRendered(ctx, jobID, types.KindRenderedPDF)
	require.NoError(t, err)
	assert.Equal(t, pdf, loaded)

	missing, err := artifacts.LoadRendered(ctx, jobID, types.KindRenderedDOCX)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestArtifacts_RefImages(t *testing.T) {
	ctx := context.Background()
	artifacts := NewArtifacts(store.NewMemory())
	jobID := uuid.New()

	require.NoError(t, artifacts.SaveRefImage(ctx, jobID, 0, []byte("png-bytes-0")))
	require.NoError(t, artifacts.SaveRefImage(ctx, jobID, 1, []byte("png-bytes-1")))

	img0, err := artifacts.LoadRefImage(ctx, jobID, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes-0"), img0)

	img2, err := artifacts.LoadRefImage(ctx, jobID, 2)
	require.NoError(t, err)
	assert.Nil(t, img2)
}
