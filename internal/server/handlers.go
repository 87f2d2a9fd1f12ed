package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/jonathan/essayflow/internal/types"
)

// maxRefImages caps the number of reference images accepted per upload.
const maxRefImages = 10

// handleUpload accepts a multipart document upload and starts the generate
// pipeline. Form fields mirror the job config: intensity,
// preserve_citations, additional_prompt, student_name, course_name, plus
// up to ten ref_images files.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		s.errorResponse(w, http.StatusRequestEntityTooLarge, "upload too large or malformed")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	cfg := s.configFromForm(r)

	refImages, err := s.readRefImages(r)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := s.orch.Submit(r.Context(), data, header.Filename, cfg, refImages)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusAccepted, job)
}

// importRequest is the body of POST /api/import.
type importRequest struct {
	Text         string `json:"text"`
	Instructions string `json:"instructions"`
	StudentName  string `json:"student_name"`
	CourseName   string `json:"course_name"`
}

// handleImport accepts pasted essay text and starts the import pipeline.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	cfg := types.JobConfig{
		Humanization: types.DefaultHumanizationSettings(),
		StudentName:  req.StudentName,
		CourseName:   req.CourseName,
	}

	job, err := s.orch.SubmitText(r.Context(), req.Text, req.Instructions, cfg)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusAccepted, job)
}

// handleTask returns the job record for pollers.
func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	jobID, ok := s.jobIDFromPath(w, r)
	if !ok {
		return
	}

	job, err := s.orch.Status(r.Context(), jobID)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, job)
}

// refineRequest is the body of POST /api/essay/{id}/refine.
type refineRequest struct {
	Instructions string `json:"instructions"`
}

func (s *Server) handleRefine(w http.ResponseWriter, r *http.Request) {
	jobID, ok := s.jobIDFromPath(w, r)
	if !ok {
		return
	}

	var req refineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Instructions == "" {
		s.errorResponse(w, http.StatusBadRequest, "instructions are required")
		return
	}

	if err := s.orch.Refine(r.Context(), jobID, req.Instructions); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	job, err := s.orch.Status(r.Context(), jobID)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusAccepted, job)
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	jobID, ok := s.jobIDFromPath(w, r)
	if !ok {
		return
	}

	if err := s.orch.Finalize(r.Context(), jobID); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	job, err := s.orch.Status(r.Context(), jobID)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusAccepted, job)
}

// handleContent returns the current essay, preferring the humanized
// version.
func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	jobID, ok := s.jobIDFromPath(w, r)
	if !ok {
		return
	}

	essay, err := s.orch.Content(r.Context(), jobID)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, essay)
}

// handleDownload streams a rendered document. The signed token published in
// the job's download reference authorizes access; the job must be
// completed.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	jobID, ok := s.jobIDFromPath(w, r)
	if !ok {
		return
	}

	tokenJobID, err := s.tokens.ValidateDownloadToken(r.URL.Query().Get("token"))
	if err != nil || tokenJobID != jobID {
		s.errorResponse(w, http.StatusUnauthorized, "invalid or missing download token")
		return
	}

	job, err := s.orch.Status(r.Context(), jobID)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	if job.Status != types.StatusCompleted {
		s.errorResponse(w, http.StatusConflict, fmt.Sprintf("job is %s, not completed", job.Status))
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "pdf"
	}

	var (
		kind        types.ArtifactKind
		contentType string
	)
	switch format {
	case "pdf":
		kind = types.KindRenderedPDF
		contentType = "application/pdf"
	case "docx":
		kind = types.KindRenderedDOCX
		contentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		s.errorResponse(w, http.StatusBadRequest, "format must be pdf or docx")
		return
	}

	data, err := s.artifacts.LoadRendered(r.Context(), jobID, kind)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	if data == nil {
		s.errorResponse(w, http.StatusNotFound, "rendered document not found")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=essay.%s", format))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		// client went away mid-download
		return
	}
}

func (s *Server) jobIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	jobID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid job id")
		return uuid.Nil, false
	}
	return jobID, true
}

func (s *Server) configFromForm(r *http.Request) types.JobConfig {
	cfg := types.JobConfig{
		Humanization:     types.DefaultHumanizationSettings(),
		AdditionalPrompt: r.FormValue("additional_prompt"),
		StudentName:      r.FormValue("student_name"),
		CourseName:       r.FormValue("course_name"),
	}

	if raw := r.FormValue("intensity"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			cfg.Humanization.Intensity = v
		}
	}
	if raw := r.FormValue("preserve_citations"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			cfg.Humanization.PreserveCitations = v
		}
	}
	return cfg
}

func (s *Server) readRefImages(r *http.Request) ([][]byte, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}

	headers := r.MultipartForm.File["ref_images"]
	if len(headers) > maxRefImages {
		return nil, fmt.Errorf("at most %d reference images are allowed", maxRefImages)
	}

	images := make([][]byte, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open reference image %s", h.Filename)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read reference image %s", h.Filename)
		}
		images = append(images, data)
	}
	return images, nil
}
