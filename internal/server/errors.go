package server

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/essayflow/internal/extraction"
	"github.com/jonathan/essayflow/internal/jobs"
	"github.com/jonathan/essayflow/internal/pipeline"
)

// HTTPStatus maps a service error to its response status code.
func HTTPStatus(err error) int {
	var (
		notFound        *jobs.NotFoundError
		invalidState    *pipeline.InvalidStateError
		missingArtifact *pipeline.MissingArtifactError
		importText      *pipeline.ImportTextError
		badFormat       *extraction.UnsupportedFormatError
		emptyDoc        *extraction.EmptyDocumentError
		parseFailure    *extraction.ParseError
		validation      validator.ValidationErrors
	)

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &invalidState):
		return http.StatusConflict
	case errors.As(err, &missingArtifact):
		return http.StatusNotFound
	case errors.As(err, &importText),
		errors.As(err, &badFormat),
		errors.As(err, &emptyDoc),
		errors.As(err, &parseFailure),
		errors.As(err, &validation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
