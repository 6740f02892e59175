package api

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/mesh-intelligence/biblio/internal/validator"
	"github.com/mesh-intelligence/biblio/pkg/biblio"
	"github.com/mesh-intelligence/biblio/pkg/types"
)

const maxNameChars = 100

func (s *Server) healthcheckHandler(w http.ResponseWriter, r *http.Request) {
	data := envelope{"status": "available", "version": biblio.Version}
	if err := s.writeJSON(w, http.StatusOK, data, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

// listUsersHandler handles GET /v1/users.
func (s *Server) listUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		s.serverErrorResponse(w, r, err)
		return
	}
	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, s.viewUser(u))
	}
	if err := s.writeJSON(w, http.StatusOK, envelope{"users": views}, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

// createUserHandler handles POST /v1/users. A password registers the user
// with a credential; role defaults to normal.
func (s *Server) createUserHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		ID        string `json:"id"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Password  string `json:"password"`
		Role      string `json:"role"`
	}
	if err := s.readJSON(w, r, &input); err != nil {
		s.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	v.Check(types.ValidateUserID(types.NormalizeID(input.ID)), "id", "must be eight digits followed by a control letter")
	checkNames(v, input.FirstName, input.LastName)
	v.Check(validator.In(input.Role, "", types.RoleNormal, types.RoleAdmin), "role", "must be normal or admin")
	v.Check(input.Role == "" || input.Password != "", "password", "must be provided with a role")
	v.Check(input.Password == "" || s.creds != nil, "password", "credentials are not enabled on this server")
	if !v.Valid() {
		s.failedValidationResponse(w, r, v.Errors)
		return
	}

	ctx := r.Context()
	user := types.NewUser(input.ID, input.FirstName, input.LastName)
	if err := s.store.InsertUser(ctx, user); err != nil {
		s.domainErrorResponse(w, r, err)
		return
	}
	if input.Password != "" {
		if _, err := s.creds.Register(user.ID, input.Password, input.Role); err != nil {
			if derr := s.store.DeleteUser(ctx, user.ID); derr != nil {
				s.logError(r, derr)
			}
			s.domainErrorResponse(w, r, err)
			return
		}
	}

	headers := make(http.Header)
	headers.Set("Location", "/v1/users/"+url.PathEscape(user.ID))
	if err := s.writeJSON(w, http.StatusCreated, envelope{"user": s.viewUser(user)}, headers); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

// showUserHandler handles GET /v1/users/:id.
func (s *Server) showUserHandler(w http.ResponseWriter, r *http.Request) {
	user, err := s.store.GetUser(r.Context(), param(r, "id"))
	if err != nil {
		s.domainErrorResponse(w, r, err)
		return
	}
	if err := s.writeJSON(w, http.StatusOK, envelope{"user": s.viewUser(user)}, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

// updateUserHandler handles PUT /v1/users/:id. The id itself is immutable.
func (s *Server) updateUserHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := s.readJSON(w, r, &input); err != nil {
		s.badRequestResponse(w, r, err)
		return
	}
	v := validator.New()
	checkNames(v, input.FirstName, input.LastName)
	if !v.Valid() {
		s.failedValidationResponse(w, r, v.Errors)
		return
	}

	ctx := r.Context()
	id := param(r, "id")
	patch := types.NewUser(id, input.FirstName, input.LastName)
	if err := s.store.UpdateUser(ctx, id, patch.FirstName, patch.LastName); err != nil {
		s.domainErrorResponse(w, r, err)
		return
	}
	// In the legacy mode a missing id updates nothing without error; the
	// read below still reports it as missing.
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		s.domainErrorResponse(w, r, err)
		return
	}
	if err := s.writeJSON(w, http.StatusOK, envelope{"user": s.viewUser(user)}, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

// deleteUserHandler handles DELETE /v1/users/:id. Users holding books
// cannot be deleted.
func (s *Server) deleteUserHandler(w http.ResponseWriter, r *http.Request) {
	id := param(r, "id")
	if err := s.lender.RemoveUser(r.Context(), id); err != nil {
		s.domainErrorResponse(w, r, err)
		return
	}
	if s.creds != nil {
		if err := s.creds.Remove(id); err != nil && !errors.Is(err, types.ErrNotFound) {
			s.serverErrorResponse(w, r, err)
			return
		}
	}
	if err := s.writeJSON(w, http.StatusOK, envelope{"message": "user successfully deleted"}, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

func checkNames(v *validator.Validator, first, last string) {
	v.Check(validator.NotBlank(first), "first_name", "must be provided")
	v.Check(validator.MaxChars(first, maxNameChars), "first_name", "must not be more than 100 characters long")
	v.Check(validator.NotBlank(last), "last_name", "must be provided")
	v.Check(validator.MaxChars(last, maxNameChars), "last_name", "must not be more than 100 characters long")
}
