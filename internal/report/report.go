// Package report renders users, books, overdue loans and loan history for
// people and for machines. Renderers only format what they are given; they
// never touch the store.
package report

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	jsoniter "github.com/json-iterator/go"

	"github.com/mesh-intelligence/biblio/pkg/types"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// newTable returns a tabwriter with the column layout shared by all reports.
func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// Users writes one row per user: id and full name.
func Users(w io.Writer, users []*types.User) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tFIRST NAME\tLAST NAME")
	for _, u := range users {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", u.ID, u.FirstName, u.LastName)
	}
	return tw.Flush()
}

// Books writes one row per book with its loan status.
func Books(w io.Writer, books []*types.Book) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "TITLE\tAUTHOR\tSTATUS")
	for _, b := range books {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", b.Title, b.Author, b.Status())
	}
	return tw.Flush()
}

// Overdue writes one row per overdue loan. An empty list prints a single
// line saying so instead of a bare header.
func Overdue(w io.Writer, loans []types.OverdueLoan) error {
	if len(loans) == 0 {
		_, err := fmt.Fprintln(w, "No overdue loans.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "TITLE\tUSER\tLOAN DATE\tDAYS")
	for _, l := range loans {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			l.Title, l.UserID, l.LoanDate.Format(types.DateLayout), strconv.Itoa(l.DaysElapsed))
	}
	return tw.Flush()
}

// History writes the loan events in the order given.
func History(w io.Writer, events []*types.LoanEvent) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "DATE\tEVENT\tTITLE\tUSER")
	for _, e := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			e.OccurredOn.Format(types.DateLayout), e.Kind, e.Title, e.UserID)
	}
	return tw.Flush()
}

// JSON writes v as indented JSON followed by a newline.
func JSON(w io.Writer, v any) error {
	data, err := codec.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
