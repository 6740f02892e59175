package api

import (
	"net/http"
	"net/url"

	"github.com/mesh-intelligence/biblio/internal/validator"
	"github.com/mesh-intelligence/biblio/pkg/types"
)

const maxTitleChars = 500

// listBooksHandler handles GET /v1/books?filter=all|available|loaned.
func (s *Server) listBooksHandler(w http.ResponseWriter, r *http.Request) {
	filter, err := types.ParseBookFilter(readString(r.URL.Query(), "filter", "all"))
	if err != nil {
		s.badRequestResponse(w, r, err)
		return
	}
	books, err := s.store.ListBooks(r.Context(), filter)
	if err != nil {
		s.serverErrorResponse(w, r, err)
		return
	}
	data := envelope{"books": viewBooks(books), "filter": filter.String()}
	if err := s.writeJSON(w, http.StatusOK, data, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

// createBookHandler handles POST /v1/books. New books are available.
func (s *Server) createBookHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Title  string `json:"title"`
		Author string `json:"author"`
	}
	if err := s.readJSON(w, r, &input); err != nil {
		s.badRequestResponse(w, r, err)
		return
	}
	v := validator.New()
	checkBook(v, input.Title, input.Author)
	if !v.Valid() {
		s.failedValidationResponse(w, r, v.Errors)
		return
	}

	book := types.NewBook(input.Title, input.Author)
	if err := s.store.InsertBook(r.Context(), book); err != nil {
		s.domainErrorResponse(w, r, err)
		return
	}

	headers := make(http.Header)
	headers.Set("Location", "/v1/books/"+url.PathEscape(book.Title))
	if err := s.writeJSON(w, http.StatusCreated, envelope{"book": viewBook(book)}, headers); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

// showBookHandler handles GET /v1/books/:title.
func (s *Server) showBookHandler(w http.ResponseWriter, r *http.Request) {
	book, err := s.store.GetBook(r.Context(), param(r, "title"))
	if err != nil {
		s.domainErrorResponse(w, r, err)
		return
	}
	if err := s.writeJSON(w, http.StatusOK, envelope{"book": viewBook(book)}, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

// updateBookHandler handles PUT /v1/books/:title. Omitted fields keep their
// current value; the loan state is never touched.
func (s *Server) updateBookHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Title  *string `json:"title"`
		Author *string `json:"author"`
	}
	if err := s.readJSON(w, r, &input); err != nil {
		s.badRequestResponse(w, r, err)
		return
	}

	ctx := r.Context()
	title := param(r, "title")
	current, err := s.store.GetBook(ctx, title)
	if err != nil {
		s.domainErrorResponse(w, r, err)
		return
	}

	next := types.NewBook(current.Title, current.Author)
	if input.Title != nil {
		next.Title = types.NewBook(*input.Title, "").Title
	}
	if input.Author != nil {
		next.Author = types.NewBook("", *input.Author).Author
	}
	v := validator.New()
	checkBook(v, next.Title, next.Author)
	if !v.Valid() {
		s.failedValidationResponse(w, r, v.Errors)
		return
	}

	if err := s.store.UpdateBook(ctx, title, next.Title, next.Author); err != nil {
		s.domainErrorResponse(w, r, err)
		return
	}
	book, err := s.store.GetBook(ctx, next.Title)
	if err != nil {
		s.domainErrorResponse(w, r, err)
		return
	}
	if err := s.writeJSON(w, http.StatusOK, envelope{"book": viewBook(book)}, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

// deleteBookHandler handles DELETE /v1/books/:title. Deleting a missing
// title succeeds.
func (s *Server) deleteBookHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteBook(r.Context(), param(r, "title")); err != nil {
		s.serverErrorResponse(w, r, err)
		return
	}
	if err := s.writeJSON(w, http.StatusOK, envelope{"message": "book successfully deleted"}, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

func checkBook(v *validator.Validator, title, author string) {
	v.Check(validator.NotBlank(title), "title", "must be provided")
	v.Check(validator.MaxChars(title, maxTitleChars), "title", "must not be more than 500 characters long")
	v.Check(validator.NotBlank(author), "author", "must be provided")
	v.Check(validator.MaxChars(author, maxNameChars), "author", "must not be more than 100 characters long")
}
