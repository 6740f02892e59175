package api

import (
	"errors"
	"net/http"

	"github.com/mesh-intelligence/biblio/internal/credential"
	"github.com/mesh-intelligence/biblio/pkg/types"
)

func (s *Server) logError(r *http.Request, err error) {
	s.logger.Error(err.Error(), "request_method", r.Method, "request_url", r.URL.String())
}

// errorResponse writes {"error": message} with status.
func (s *Server) errorResponse(w http.ResponseWriter, r *http.Request, status int, message any) {
	if err := s.writeJSON(w, status, envelope{"error": message}, nil); err != nil {
		s.logError(r, err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// serverErrorResponse logs err and sends a generic 500.
func (s *Server) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	s.logError(r, err)
	s.errorResponse(w, r, http.StatusInternalServerError, "the server encountered a problem and could not process your request")
}

func (s *Server) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	s.errorResponse(w, r, http.StatusNotFound, "the requested resource could not be found")
}

func (s *Server) methodNotAllowedResponse(w http.ResponseWriter, r *http.Request) {
	s.errorResponse(w, r, http.StatusMethodNotAllowed, "the "+r.Method+" method is not supported for this resource")
}

func (s *Server) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	s.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

// failedValidationResponse sends 422 with the field errors.
func (s *Server) failedValidationResponse(w http.ResponseWriter, r *http.Request, errs map[string]string) {
	s.errorResponse(w, r, http.StatusUnprocessableEntity, errs)
}

func (s *Server) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request) {
	s.errorResponse(w, r, http.StatusTooManyRequests, "rate limit exceeded")
}

// statusFor maps store, lending and credential errors to HTTP status codes.
// Anything unrecognised is a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrUnknownUser),
		errors.Is(err, types.ErrUnknownBook):
		return http.StatusNotFound
	case errors.Is(err, types.ErrDuplicateKey),
		errors.Is(err, types.ErrAlreadyLoaned),
		errors.Is(err, types.ErrNotLoaned),
		errors.Is(err, types.ErrLoanLimitExceeded),
		errors.Is(err, types.ErrUserHasLoans):
		return http.StatusConflict
	case errors.Is(err, types.ErrInvalidFormat),
		errors.Is(err, types.ErrInvalidData),
		errors.Is(err, types.ErrInvalidRole):
		return http.StatusUnprocessableEntity
	case errors.Is(err, types.ErrInvalidFilter):
		return http.StatusBadRequest
	case errors.Is(err, credential.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// domainErrorResponse answers with the status statusFor assigns to err.
func (s *Server) domainErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.serverErrorResponse(w, r, err)
		return
	}
	s.errorResponse(w, r, status, err.Error())
}
