package api

import (
	"net/http"

	"github.com/mesh-intelligence/biblio/internal/validator"
	"github.com/mesh-intelligence/biblio/pkg/types"
)

// borrowHandler handles POST /v1/loans.
func (s *Server) borrowHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Title  string `json:"title"`
		UserID string `json:"user_id"`
	}
	if err := s.readJSON(w, r, &input); err != nil {
		s.badRequestResponse(w, r, err)
		return
	}
	v := validator.New()
	v.Check(validator.NotBlank(input.Title), "title", "must be provided")
	v.Check(types.ValidateUserID(types.NormalizeID(input.UserID)), "user_id", "must be eight digits followed by a control letter")
	if !v.Valid() {
		s.failedValidationResponse(w, r, v.Errors)
		return
	}

	book, err := s.lender.Borrow(r.Context(), input.Title, input.UserID)
	if err != nil {
		s.domainErrorResponse(w, r, err)
		return
	}
	if err := s.writeJSON(w, http.StatusCreated, envelope{"book": viewBook(book)}, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

// returnHandler handles DELETE /v1/loans/:title.
func (s *Server) returnHandler(w http.ResponseWriter, r *http.Request) {
	book, err := s.lender.Return(r.Context(), param(r, "title"))
	if err != nil {
		s.domainErrorResponse(w, r, err)
		return
	}
	if err := s.writeJSON(w, http.StatusOK, envelope{"book": viewBook(book)}, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

// overdueHandler handles GET /v1/loans/overdue?today=YYYY-MM-DD. Without
// today the server's date is used.
func (s *Server) overdueHandler(w http.ResponseWriter, r *http.Request) {
	today := types.DateOf(s.now())
	if raw := readString(r.URL.Query(), "today", ""); raw != "" {
		d, err := types.ParseDate(raw)
		if err != nil {
			s.badRequestResponse(w, r, err)
			return
		}
		today = d
	}

	loans, err := s.lender.OverdueLoans(r.Context(), today)
	if err != nil {
		s.serverErrorResponse(w, r, err)
		return
	}
	data := envelope{
		"today":        today.Format(types.DateLayout),
		"overdue_days": s.lender.OverdueDays(),
		"loans":        viewOverdue(loans),
	}
	if err := s.writeJSON(w, http.StatusOK, data, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

// historyHandler handles GET /v1/loans/history?title=.
func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	events, err := s.lender.History(r.Context(), readString(r.URL.Query(), "title", ""))
	if err != nil {
		s.serverErrorResponse(w, r, err)
		return
	}
	if err := s.writeJSON(w, http.StatusOK, envelope{"events": viewEvents(events)}, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}
