package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/brd-generator/internal/db"
	"github.com/jonathan/brd-generator/internal/extraction"
	"github.com/jonathan/brd-generator/internal/pipeline"
	"github.com/jonathan/brd-generator/internal/synthesis"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrNotFound indicates a missing project or document
type ErrNotFound struct {
	What string
	ID   string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.What, e.ID)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validationErr *ErrValidation
		notFoundErr   *ErrNotFound
		fieldErrs     validator.ValidationErrors
		stageErr      *pipeline.StageError
		sectionErr    *synthesis.SectionNotFoundError
		generationErr *synthesis.GenerationError
	)

	switch {
	case errors.As(err, &validationErr), errors.As(err, &fieldErrs), errors.Is(err, synthesis.ErrEmptyChange):
		return http.StatusBadRequest
	case errors.As(err, &notFoundErr), errors.Is(err, db.ErrProjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, extraction.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &stageErr):
		return http.StatusConflict
	case errors.Is(err, synthesis.ErrNoFragments), errors.As(err, &sectionErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &generationErr):
		return http.StatusBadGateway
	case errors.Is(err, pipeline.ErrNoScheduler), errors.Is(err, pipeline.ErrNoSynthesizer):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
