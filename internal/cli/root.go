// Package cli implements the biblio command-line interface. Commands
// validate and normalize what the user typed, call the store or the lending
// engine, and print the result as a table or as JSON.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/biblio/internal/credential"
	"github.com/mesh-intelligence/biblio/internal/lending"
	"github.com/mesh-intelligence/biblio/internal/paths"
	"github.com/mesh-intelligence/biblio/internal/sqlite"
	"github.com/mesh-intelligence/biblio/pkg/biblio"
	"github.com/mesh-intelligence/biblio/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	logLevel  string
}

// app is the state shared by one invocation's commands.
type app struct {
	flags  rootFlags
	stderr io.Writer

	v        *viper.Viper
	settings settings
	logger   *slog.Logger

	store  *sqlite.Backend
	lender *lending.Lender
	creds  *credential.Registry
}

// NewRootCmd creates the top-level "biblio" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	root, _ := newRootCmd()
	return root
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{stderr: os.Stderr}

	root := &cobra.Command{
		Use:     "biblio",
		Short:   "Biblio manages a library's users, books and loans",
		Long:    "Biblio tracks registered users and the book inventory, records loans\nand returns, and reports overdue loans.",
		Version: biblio.Version,
		// Errors are printed once by Execute.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.stderr = cmd.ErrOrStderr()
			return a.loadSettings(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/"+paths.DefaultDataDirName+")")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output as JSON")
	root.PersistentFlags().StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(a))
	root.AddCommand(newUserCmd(a))
	root.AddCommand(newBookCmd(a))
	root.AddCommand(newLoanCmd(a))
	root.AddCommand(newServeCmd(a))

	return root, a
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	return execute(newRootCmd())
}

// execute runs root and prints its error once. cobra skips
// PersistentPostRunE when a command fails, so the store is closed here as
// well; a write committed before the failure still reaches disk.
func execute(root *cobra.Command, a *app) int {
	err := root.Execute()
	if cerr := a.close(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	if err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "biblio:", err)
		return exitCode(err)
	}
	return exitSuccess
}

// exitCode classifies err: anything the user can fix by changing the
// request is a user error; everything else is a system error.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ue *usageError
	if errors.As(err, &ue) {
		return exitUserError
	}
	for _, target := range []error{
		types.ErrDuplicateKey, types.ErrInvalidFormat, types.ErrNotFound,
		types.ErrInvalidData, types.ErrInvalidFilter, types.ErrInvalidRole,
		credential.ErrInvalidCredentials,
	} {
		if errors.Is(err, target) {
			return exitUserError
		}
	}
	if types.IsPolicyError(err) {
		return exitUserError
	}
	return exitSysError
}

// usageError marks a bad invocation: wrong arguments or flag values.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

// usageArgs wraps a cobra positional-args validator so its failures count
// as user errors.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}
