package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/biblio/internal/report"
	"github.com/mesh-intelligence/biblio/pkg/types"
)

func newBookCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Manage the book inventory",
	}
	cmd.AddCommand(
		newBookAddCmd(a),
		newBookUpdateCmd(a),
		newBookDeleteCmd(a),
		newBookListCmd(a),
	)
	return cmd
}

func newBookAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "add <title> <author>",
		Short:   "Add an available book",
		Example: `  biblio book add "Dune" "Frank Herbert"`,
		Args:    usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			b := types.NewBook(args[0], args[1])
			if err := a.store.InsertBook(cmd.Context(), b); err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), b, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "book %q added\n", b.Title)
				return err
			})
		},
	}
}

func newBookUpdateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "update <title> <new-title> <new-author>",
		Short: "Rename a book and set its author",
		Long: `Update renames a book and sets its author. A loaned book stays loaned to
the same user, and its loan history follows the new title.`,
		Args: usageArgs(cobra.ExactArgs(3)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			next := types.NewBook(args[1], args[2])
			if err := a.store.UpdateBook(cmd.Context(), args[0], next.Title, next.Author); err != nil {
				return err
			}
			return a.printMessage(cmd.OutOrStdout(), "book %q updated", args[0])
		},
	}
}

func newBookDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <title>",
		Short: "Delete a book",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			if err := a.store.DeleteBook(cmd.Context(), args[0]); err != nil {
				return err
			}
			return a.printMessage(cmd.OutOrStdout(), "book %q deleted", args[0])
		},
	}
}

func newBookListCmd(a *app) *cobra.Command {
	var filterFlag string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List books ordered by title",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := types.ParseBookFilter(filterFlag)
			if err != nil {
				return &usageError{err: err}
			}
			if err := a.open(); err != nil {
				return err
			}
			books, err := a.store.ListBooks(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), books, func(w io.Writer) error {
				return report.Books(w, books)
			})
		},
	}
	cmd.Flags().StringVar(&filterFlag, "filter", "all", "all, available or loaned")
	return cmd
}
