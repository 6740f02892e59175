package types

import (
	"regexp"
	"strings"
)

// userIDPattern is the national id format: eight digits and a control
// letter. I, O and U are never used as control letters.
var userIDPattern = regexp.MustCompile(`^\d{8}[A-HJ-NP-TV-Z]$`)

// User is a library member keyed by national id.
type User struct {
	ID        string `json:"id" db:"id"`                 // Primary key, immutable once created.
	FirstName string `json:"first_name" db:"first_name"` // Display field.
	LastName  string `json:"last_name" db:"last_name"`   // Display field.
}

// NewUser builds a User with a normalized id. The id pattern is not
// enforced here; the entry layer calls ValidateUserID before construction.
func NewUser(id, firstName, lastName string) *User {
	return &User{
		ID:        NormalizeID(id),
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
	}
}

// NormalizeID trims surrounding space and upper-cases a user id. Every store
// operation that takes an id receives it in this form.
func NormalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// ValidateUserID reports whether id matches the eight-digits-plus-letter
// pattern, ignoring case.
func ValidateUserID(id string) bool {
	return userIDPattern.MatchString(strings.ToUpper(id))
}

// CheckUserID normalizes id and returns ErrInvalidFormat if it does not
// match the id pattern.
func CheckUserID(id string) (string, error) {
	id = NormalizeID(id)
	if !ValidateUserID(id) {
		return "", ErrInvalidFormat
	}
	return id, nil
}

// FullName returns "first last".
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
