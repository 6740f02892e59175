package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/biblio/internal/report"
	"github.com/mesh-intelligence/biblio/pkg/types"
)

// now is the clock for loan dates and for "today" when --today is not given.
var now = time.Now

func newLoanCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loan",
		Short: "Borrow and return books, report overdue loans",
	}
	cmd.AddCommand(
		newLoanBorrowCmd(a),
		newLoanReturnCmd(a),
		newLoanOverdueCmd(a),
		newLoanHistoryCmd(a),
	)
	return cmd
}

func newLoanBorrowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "borrow <title> <user-id>",
		Short:   "Lend a book to a user as of today",
		Example: `  biblio loan borrow "Dune" 12345678Z`,
		Args:    usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := checkUserID(args[1])
			if err != nil {
				return err
			}
			if err := a.open(); err != nil {
				return err
			}
			b, err := a.lender.Borrow(cmd.Context(), args[0], id)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), b, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%q: %s\n", b.Title, b.Status())
				return err
			})
		},
	}
}

func newLoanReturnCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "return <title>",
		Short: "Return a loaned book",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			b, err := a.lender.Return(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), b, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%q: %s\n", b.Title, b.Status())
				return err
			})
		},
	}
}

func newLoanOverdueCmd(a *app) *cobra.Command {
	var todayFlag string
	cmd := &cobra.Command{
		Use:   "overdue",
		Short: "List loans past the overdue threshold",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			today := types.DateOf(now())
			if todayFlag != "" {
				d, err := types.ParseDate(todayFlag)
				if err != nil {
					return &usageError{err: err}
				}
				today = d
			}
			if err := a.open(); err != nil {
				return err
			}
			loans, err := a.lender.OverdueLoans(cmd.Context(), today)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), loans, func(w io.Writer) error {
				return report.Overdue(w, loans)
			})
		},
	}
	cmd.Flags().StringVar(&todayFlag, "today", "", "reference date YYYY-MM-DD (default: current date)")
	return cmd
}

func newLoanHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history [title]",
		Short: "Show loan history of one book or of all books",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			var title string
			if len(args) == 1 {
				title = args[0]
			}
			if err := a.open(); err != nil {
				return err
			}
			events, err := a.lender.History(cmd.Context(), title)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), events, func(w io.Writer) error {
				return report.History(w, events)
			})
		},
	}
}
