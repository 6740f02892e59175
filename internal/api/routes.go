package api

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// Routes returns the router wrapped in the middleware chain
// recoverPanic > rateLimit > logRequest > router.
//
//	GET    /v1/healthcheck
//	GET    /v1/users              list users
//	POST   /v1/users              create a user, optionally with a password
//	GET    /v1/users/:id          show a user
//	PUT    /v1/users/:id          replace a user's names
//	DELETE /v1/users/:id          remove a user without loans
//	GET    /v1/books?filter=      list books (all, available, loaned)
//	POST   /v1/books              create a book
//	GET    /v1/books/:title       show a book
//	PUT    /v1/books/:title       rename a book or change its author
//	DELETE /v1/books/:title       delete a book
//	POST   /v1/loans              borrow a book
//	DELETE /v1/loans/:title       return a book
//	GET    /v1/loans/overdue      overdue loans as of ?today=
//	GET    /v1/loans/history      loan history, optionally ?title=
func (s *Server) Routes() http.Handler {
	router := httprouter.New()
	router.NotFound = http.HandlerFunc(s.notFoundResponse)
	router.MethodNotAllowed = http.HandlerFunc(s.methodNotAllowedResponse)

	router.HandlerFunc(http.MethodGet, "/v1/healthcheck", s.healthcheckHandler)

	router.HandlerFunc(http.MethodGet, "/v1/users", s.listUsersHandler)
	router.HandlerFunc(http.MethodPost, "/v1/users", s.createUserHandler)
	router.HandlerFunc(http.MethodGet, "/v1/users/:id", s.showUserHandler)
	router.HandlerFunc(http.MethodPut, "/v1/users/:id", s.updateUserHandler)
	router.HandlerFunc(http.MethodDelete, "/v1/users/:id", s.deleteUserHandler)

	router.HandlerFunc(http.MethodGet, "/v1/books", s.listBooksHandler)
	router.HandlerFunc(http.MethodPost, "/v1/books", s.createBookHandler)
	router.HandlerFunc(http.MethodGet, "/v1/books/:title", s.showBookHandler)
	router.HandlerFunc(http.MethodPut, "/v1/books/:title", s.updateBookHandler)
	router.HandlerFunc(http.MethodDelete, "/v1/books/:title", s.deleteBookHandler)

	router.HandlerFunc(http.MethodPost, "/v1/loans", s.borrowHandler)
	router.HandlerFunc(http.MethodDelete, "/v1/loans/:title", s.returnHandler)
	router.HandlerFunc(http.MethodGet, "/v1/loans/overdue", s.overdueHandler)
	router.HandlerFunc(http.MethodGet, "/v1/loans/history", s.historyHandler)

	return s.recoverPanic(s.rateLimit(s.logRequest(router)))
}
