package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/essayflow/internal/jobs"
	"github.com/jonathan/essayflow/internal/llm"
	"github.com/jonathan/essayflow/internal/pipeline"
	"github.com/jonathan/essayflow/internal/queue"
	"github.com/jonathan/essayflow/internal/rendering"
	"github.com/jonathan/essayflow/internal/store"
	"github.com/jonathan/essayflow/internal/types"
)

const assignmentDoc = `Assignment: Write a 2000 word essay on the impact of urbanization
on local ecosystems. Use APA citations and at least five sources.`

const importedEssay = `The maritime trade routes of the early modern period reshaped global commerce.
Merchants connected ports across three continents, and the flow of goods changed
what people ate, wore and believed. This essay traces those connections.`

// scriptedClient recognizes the prompt and answers with canned JSON so
// full pipeline runs behind the handlers are deterministic.
type scriptedClient struct{}

func (scriptedClient) Generate(_ context.Context, req llm.Request) (string, error) {
	switch {
	case strings.Contains(req.System, "assignment analyzer"):
		return `{"required_word_count":600,"topic":"Urbanization","key_requirements":[],"suggested_sections":["Background","Analysis"],"academic_level":"undergraduate","citation_style":"APA"}`, nil
	case strings.Contains(req.Content, "Write a compelling introduction"):
		return `{"introduction":"Cities keep growing.","thesis_statement":"Growth has costs."}`, nil
	case strings.Contains(req.Content, "Write a detailed body section"):
		return `{"title":"","content":"Evidence for the argument."}`, nil
	case strings.Contains(req.Content, "Write a strong conclusion"):
		return `{"conclusion":"Plan for both."}`, nil
	case strings.Contains(req.Content, "academic librarian"):
		return `{"references":["Doe, J. (2021). Urban Ecology. City Press."]}`, nil
	case strings.Contains(req.System, "humanizes AI-generated text"):
		return `{"title":"Urbanization","thesis_statement":"Growth has costs.","introduction":"Cities grow. Fast.","body_sections":[{"title":"Background","content":"Humanized background."},{"title":"Analysis","content":"Humanized analysis."}],"conclusion":"Humanized conclusion."}`, nil
	case strings.Contains(req.System, "intelligent editor"):
		return `{"title":"Urbanization","thesis_statement":"Growth has costs.","introduction":"Refined introduction.","body_sections":[{"title":"Background","content":"Refined background."}],"conclusion":"Refined conclusion.","ai_feedback":"Done."}`, nil
	case strings.Contains(req.Content, "Essay Parser"):
		return `{"title":"Maritime Trade","thesis_statement":"Trade shaped the world.","introduction":"The maritime trade routes reshaped commerce.","body_sections":[{"title":"Connected Ports","content":"Merchants connected ports."}],"conclusion":"Trade made the modern world.","references":[]}`, nil
	case strings.Contains(req.Content, "Describe this image"):
		return "A chart.", nil
	}
	return "", fmt.Errorf("unrecognized prompt")
}

func (scriptedClient) Close() error { return nil }

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()

	mem := store.NewMemory()
	records := jobs.NewRecords(mem)
	artifacts := jobs.NewArtifacts(mem)

	caller := llm.NewCaller(scriptedClient{}, 5, func(ctx context.Context, jobID uuid.UUID, message string) {
		_ = records.SetMessage(ctx, jobID, message)
	})
	caller.SetBackoff(func(time.Duration) {}, func() float64 { return 0 })

	q := queue.NewInline(nil)
	orch := pipeline.NewOrchestrator(records, artifacts, caller, q, rendering.NewDocumentRenderer())
	q.Bind(orch.Handle)

	srv := New(Config{Port: 0, DownloadTokenSecret: "test-secret"}, orch, artifacts)
	return srv, srv.Handler()
}

func uploadRequest(t *testing.T, doc []byte, fields map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "brief.txt")
	require.NoError(t, err)
	_, err = fw.Write(doc)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeJob(t *testing.T, body *bytes.Buffer) types.Job {
	t.Helper()
	var job types.Job
	require.NoError(t, json.Unmarshal(body.Bytes(), &job))
	return job
}

func TestHealth(t *testing.T) {
	_, handler := newTestServer(t)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"ok"`)
}

func TestUpload_StartsGeneratePipeline(t *testing.T) {
	_, handler := newTestServer(t)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, uploadRequest(t, []byte(assignmentDoc), map[string]string{
		"student_name": "Jordan Avery",
		"intensity":    "0.8",
	}))
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())

	job := decodeJob(t, rr.Body)
	assert.NotEqual(t, uuid.Nil, job.ID)

	// With the inline queue the pipeline already ran to review
	statusRR := httptest.NewRecorder()
	handler.ServeHTTP(statusRR, httptest.NewRequest(http.MethodGet, "/api/task/"+job.ID.String(), nil))
	require.Equal(t, http.StatusOK, statusRR.Code)

	polled := decodeJob(t, statusRR.Body)
	assert.Equal(t, types.StatusWaitingForReview, polled.Status)
	assert.Equal(t, 85, polled.Progress)
}

func TestUpload_MissingFile(t *testing.T) {
	_, handler := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("student_name", "Jordan"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpload_UnsupportedFormatRejected(t *testing.T) {
	_, handler := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "scan.tiff")
	require.NoError(t, err)
	_, err = fw.Write([]byte(assignmentDoc))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestTask_UnknownJob(t *testing.T) {
	_, handler := newTestServer(t)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/task/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestTask_InvalidID(t *testing.T) {
	_, handler := newTestServer(t)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/task/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestImportRefineFinalizeDownload_FullFlow(t *testing.T) {
	_, handler := newTestServer(t)

	// Import
	body, _ := json.Marshal(map[string]string{"text": importedEssay})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/import", bytes.NewReader(body)))
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	job := decodeJob(t, rr.Body)

	// Content is the structured import
	contentRR := httptest.NewRecorder()
	handler.ServeHTTP(contentRR, httptest.NewRequest(http.MethodGet, "/api/essay/"+job.ID.String()+"/content", nil))
	require.Equal(t, http.StatusOK, contentRR.Code)
	var essay types.EssayOutput
	require.NoError(t, json.Unmarshal(contentRR.Body.Bytes(), &essay))
	assert.Equal(t, "Maritime Trade", essay.Title)

	// Refine
	refineBody, _ := json.Marshal(map[string]string{"instructions": "tighten the introduction"})
	refineRR := httptest.NewRecorder()
	handler.ServeHTTP(refineRR, httptest.NewRequest(http.MethodPost, "/api/essay/"+job.ID.String()+"/refine", bytes.NewReader(refineBody)))
	require.Equal(t, http.StatusAccepted, refineRR.Code)
	refined := decodeJob(t, refineRR.Body)
	assert.Equal(t, types.StatusWaitingForReview, refined.Status)

	// Finalize
	finalizeRR := httptest.NewRecorder()
	handler.ServeHTTP(finalizeRR, httptest.NewRequest(http.MethodPost, "/api/essay/"+job.ID.String()+"/finalize", nil))
	require.Equal(t, http.StatusAccepted, finalizeRR.Code)
	final := decodeJob(t, finalizeRR.Body)
	assert.Equal(t, types.StatusCompleted, final.Status)
	require.NotEmpty(t, final.DownloadRef)

	// Download using the published signed reference
	downloadRR := httptest.NewRecorder()
	handler.ServeHTTP(downloadRR, httptest.NewRequest(http.MethodGet, final.DownloadRef+"&format=pdf", nil))
	require.Equal(t, http.StatusOK, downloadRR.Code)
	assert.Equal(t, "application/pdf", downloadRR.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(downloadRR.Body.Bytes(), []byte("%PDF")))

	docxRR := httptest.NewRecorder()
	handler.ServeHTTP(docxRR, httptest.NewRequest(http.MethodGet, final.DownloadRef+"&format=docx", nil))
	require.Equal(t, http.StatusOK, docxRR.Code)
	assert.NotEmpty(t, docxRR.Body.Bytes())
}

func TestImport_TooShort(t *testing.T) {
	_, handler := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"text": "too short"})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/import", bytes.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRefine_MissingInstructions(t *testing.T) {
	_, handler := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"text": importedEssay})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/import", bytes.NewReader(body)))
	require.Equal(t, http.StatusAccepted, rr.Code)
	job := decodeJob(t, rr.Body)

	refineRR := httptest.NewRecorder()
	handler.ServeHTTP(refineRR, httptest.NewRequest(http.MethodPost, "/api/essay/"+job.ID.String()+"/refine", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, refineRR.Code)
}

func TestRefine_OnCompletedJobConflicts(t *testing.T) {
	_, handler := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"text": importedEssay})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/import", bytes.NewReader(body)))
	require.Equal(t, http.StatusAccepted, rr.Code)
	job := decodeJob(t, rr.Body)

	finalizeRR := httptest.NewRecorder()
	handler.ServeHTTP(finalizeRR, httptest.NewRequest(http.MethodPost, "/api/essay/"+job.ID.String()+"/finalize", nil))
	require.Equal(t, http.StatusAccepted, finalizeRR.Code)

	refineBody, _ := json.Marshal(map[string]string{"instructions": "change the tone"})
	refineRR := httptest.NewRecorder()
	handler.ServeHTTP(refineRR, httptest.NewRequest(http.MethodPost, "/api/essay/"+job.ID.String()+"/refine", bytes.NewReader(refineBody)))
	assert.Equal(t, http.StatusConflict, refineRR.Code)
}

func TestDownload_RequiresValidToken(t *testing.T) {
	_, handler := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"text": importedEssay})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/import", bytes.NewReader(body)))
	require.Equal(t, http.StatusAccepted, rr.Code)
	job := decodeJob(t, rr.Body)

	finalizeRR := httptest.NewRecorder()
	handler.ServeHTTP(finalizeRR, httptest.NewRequest(http.MethodPost, "/api/essay/"+job.ID.String()+"/finalize", nil))
	require.Equal(t, http.StatusAccepted, finalizeRR.Code)

	noToken := httptest.NewRecorder()
	handler.ServeHTTP(noToken, httptest.NewRequest(http.MethodGet, "/api/download/"+job.ID.String(), nil))
	assert.Equal(t, http.StatusUnauthorized, noToken.Code)

	badToken := httptest.NewRecorder()
	handler.ServeHTTP(badToken, httptest.NewRequest(http.MethodGet, "/api/download/"+job.ID.String()+"?token=garbage", nil))
	assert.Equal(t, http.StatusUnauthorized, badToken.Code)
}

func TestDownload_BeforeCompletionConflicts(t *testing.T) {
	srv, handler := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"text": importedEssay})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/import", bytes.NewReader(body)))
	require.Equal(t, http.StatusAccepted, rr.Code)
	job := decodeJob(t, rr.Body)

	// Still waiting for review; a valid token alone is not enough
	token, err := srv.tokens.GenerateDownloadToken(job.ID)
	require.NoError(t, err)

	downloadRR := httptest.NewRecorder()
	handler.ServeHTTP(downloadRR, httptest.NewRequest(http.MethodGet, "/api/download/"+job.ID.String()+"?token="+token, nil))
	assert.Equal(t, http.StatusConflict, downloadRR.Code)
}
