package api

import (
	"github.com/mesh-intelligence/biblio/pkg/types"
)

// userView is a user as the API shows it. The password hash never leaves
// the server.
type userView struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role,omitempty"`
}

// bookView flattens the loan state into borrower and date fields.
type bookView struct {
	Title      string `json:"title"`
	Author     string `json:"author"`
	Status     string `json:"status"`
	BorrowerID string `json:"borrower_id,omitempty"`
	LoanDate   string `json:"loan_date,omitempty"`
}

type overdueView struct {
	Title       string `json:"title"`
	UserID      string `json:"user_id"`
	LoanDate    string `json:"loan_date"`
	DaysElapsed int    `json:"days_elapsed"`
}

type eventView struct {
	EventID    string `json:"event_id"`
	Kind       string `json:"kind"`
	Title      string `json:"title"`
	UserID     string `json:"user_id"`
	OccurredOn string `json:"occurred_on"`
}

func (s *Server) viewUser(u *types.User) userView {
	v := userView{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName}
	if s.creds != nil {
		if c, err := s.creds.Get(u.ID); err == nil {
			v.Role = c.Role
		}
	}
	return v
}

func viewBook(b *types.Book) bookView {
	v := bookView{Title: b.Title, Author: b.Author, Status: "available"}
	if b.Loan != nil {
		v.Status = "loaned"
		v.BorrowerID = b.Loan.BorrowerID
		v.LoanDate = b.Loan.LoanDate.Format(types.DateLayout)
	}
	return v
}

func viewBooks(books []*types.Book) []bookView {
	out := make([]bookView, 0, len(books))
	for _, b := range books {
		out = append(out, viewBook(b))
	}
	return out
}

func viewOverdue(loans []types.OverdueLoan) []overdueView {
	out := make([]overdueView, 0, len(loans))
	for _, l := range loans {
		out = append(out, overdueView{
			Title:       l.Title,
			UserID:      l.UserID,
			LoanDate:    l.LoanDate.Format(types.DateLayout),
			DaysElapsed: l.DaysElapsed,
		})
	}
	return out
}

func viewEvents(events []*types.LoanEvent) []eventView {
	out := make([]eventView, 0, len(events))
	for _, e := range events {
		out = append(out, eventView{
			EventID:    e.EventID,
			Kind:       e.Kind,
			Title:      e.Title,
			UserID:     e.UserID,
			OccurredOn: e.OccurredOn.Format(types.DateLayout),
		})
	}
	return out
}
