package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mesh-intelligence/biblio/internal/credential"
	"github.com/mesh-intelligence/biblio/pkg/biblio"
	"github.com/mesh-intelligence/biblio/pkg/types"
)

func init() {
	bcryptCost = bcrypt.MinCost
}

type env struct {
	configDir string
	dataDir   string
}

func setupEnv(t *testing.T) env {
	t.Helper()
	t.Setenv("BIBLIO_DATA_DIR", "")
	t.Setenv("BIBLIO_CONFIG_DIR", "")
	return env{
		configDir: filepath.Join(t.TempDir(), "config"),
		dataDir:   filepath.Join(t.TempDir(), "data"),
	}
}

// run executes biblio with args and returns stdout.
func (e env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir}, args...))
	err := root.Execute()
	return out.String(), err
}

// execute runs biblio the way main does and returns stdout, stderr and the
// exit code, along with the app so tests can inspect its state.
func (e env) execute(t *testing.T, args ...string) (string, string, int, *app) {
	t.Helper()
	root, a := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir}, args...))
	code := execute(root, a)
	return out.String(), errOut.String(), code, a
}

func (e env) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, "biblio %s", strings.Join(args, " "))
	return out
}

func TestVersion(t *testing.T) {
	e := setupEnv(t)
	out := e.mustRun(t, "version")
	assert.Equal(t, "biblio "+biblio.Version+"\n", out)
}

func TestInit_CreatesConfigAndData(t *testing.T) {
	e := setupEnv(t)
	out := e.mustRun(t, "init")
	assert.Contains(t, out, "biblio initialized")

	cfg, err := os.ReadFile(filepath.Join(e.configDir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(cfg), "backend: sqlite")
	assert.Contains(t, string(cfg), "max_active_loans: 3")
	assert.Contains(t, string(cfg), "rate_burst: 4")

	for _, name := range []string{"users.jsonl", "books.jsonl", "loan_events.jsonl"} {
		_, err := os.Stat(filepath.Join(e.dataDir, name))
		assert.NoError(t, err, name)
	}
}

func TestUserCommands(t *testing.T) {
	e := setupEnv(t)

	out := e.mustRun(t, "user", "add", "12345678z", "Ada", "Lovelace")
	assert.Contains(t, out, "12345678Z")

	_, err := e.run(t, "user", "add", "12345678Z", "Ada", "Again")
	assert.ErrorIs(t, err, types.ErrDuplicateKey)
	assert.Equal(t, exitUserError, exitCode(err))

	_, err = e.run(t, "user", "add", "1234567A", "Bad", "Id")
	assert.ErrorIs(t, err, types.ErrInvalidFormat)

	e.mustRun(t, "user", "update", "12345678Z", "Augusta", "King")
	e.mustRun(t, "user", "update", "00000000T", "Nobody", "Here")

	out = e.mustRun(t, "user", "list")
	assert.Contains(t, out, "Augusta")
	assert.Equal(t, 1, strings.Count(out, "12345678Z"))
	assert.NotContains(t, out, "00000000T", "updating a missing id must not create it")

	e.mustRun(t, "user", "delete", "12345678Z")
	out = e.mustRun(t, "user", "list")
	assert.NotContains(t, out, "12345678Z")
}

func TestUserRegisterAndVerify(t *testing.T) {
	e := setupEnv(t)

	e.mustRun(t, "user", "register", "12345678Z", "Ada", "Lovelace", "--password", "pw", "--role", "admin")
	out := e.mustRun(t, "user", "verify", "12345678Z", "--password", "pw")
	assert.Contains(t, out, "role admin")

	_, err := e.run(t, "user", "verify", "12345678Z", "--password", "nope")
	assert.ErrorIs(t, err, credential.ErrInvalidCredentials)
	assert.Equal(t, exitUserError, exitCode(err))

	_, err = e.run(t, "user", "register", "00000000T", "Alan", "Turing", "--password", "pw", "--role", "root")
	assert.ErrorIs(t, err, types.ErrInvalidRole)
	out = e.mustRun(t, "user", "list")
	assert.NotContains(t, out, "00000000T", "failed registration must not leave a user behind")

	out = e.mustRun(t, "--json", "user", "list")
	var users []types.RegisteredUser
	require.NoError(t, jsoniter.Unmarshal([]byte(out), &users))
	require.Len(t, users, 1)
	require.NotNil(t, users[0].Credential)
	assert.Equal(t, types.RoleAdmin, users[0].Credential.Role)
	assert.Empty(t, users[0].Credential.Hash)
}

func TestBookCommands(t *testing.T) {
	e := setupEnv(t)

	e.mustRun(t, "book", "add", "Dune", "Herbert")
	e.mustRun(t, "book", "add", "Emma", "Austen")
	_, err := e.run(t, "book", "add", "Dune", "Again")
	assert.ErrorIs(t, err, types.ErrDuplicateKey)

	e.mustRun(t, "book", "update", "Emma", "Persuasion", "Jane Austen")
	out := e.mustRun(t, "book", "list")
	assert.Contains(t, out, "Persuasion")
	assert.Contains(t, out, "Jane Austen")
	assert.NotContains(t, out, "Emma")

	_, err = e.run(t, "book", "list", "--filter", "sideways")
	assert.ErrorIs(t, err, types.ErrInvalidFilter)
	assert.Equal(t, exitUserError, exitCode(err))

	e.mustRun(t, "book", "delete", "Dune")
	e.mustRun(t, "book", "delete", "Dune")
	out = e.mustRun(t, "--json", "book", "list")
	var books []types.Book
	require.NoError(t, jsoniter.Unmarshal([]byte(out), &books))
	require.Len(t, books, 1)
	assert.Equal(t, "Persuasion", books[0].Title)
}

func TestLoanCommands(t *testing.T) {
	e := setupEnv(t)
	saved := now
	now = func() time.Time { return time.Date(2022, 1, 1, 15, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { now = saved })

	e.mustRun(t, "user", "add", "12345678Z", "Ada", "Lovelace")
	for _, title := range []string{"B1", "B2", "B3", "B4"} {
		e.mustRun(t, "book", "add", title, "Author")
	}

	for _, title := range []string{"B1", "B2", "B3"} {
		out := e.mustRun(t, "loan", "borrow", title, "12345678z")
		assert.Contains(t, out, "Loaned to 12345678Z since")
	}
	_, err := e.run(t, "loan", "borrow", "B4", "12345678Z")
	assert.ErrorIs(t, err, types.ErrLoanLimitExceeded)
	assert.Equal(t, exitUserError, exitCode(err))

	out := e.mustRun(t, "book", "list", "--filter", "available")
	assert.Contains(t, out, "B4")
	assert.NotContains(t, out, "B1")

	_, err = e.run(t, "user", "delete", "12345678Z")
	assert.ErrorIs(t, err, types.ErrUserHasLoans)

	out = e.mustRun(t, "loan", "overdue", "--today", "2022-02-15")
	assert.Contains(t, out, "B1")
	assert.Contains(t, out, "45")

	out = e.mustRun(t, "loan", "overdue", "--today", "2022-01-11")
	assert.Contains(t, out, "No overdue loans.")

	_, err = e.run(t, "loan", "overdue", "--today", "someday")
	assert.Equal(t, exitUserError, exitCode(err))

	out = e.mustRun(t, "loan", "return", "B1")
	assert.Contains(t, out, "Available")
	_, err = e.run(t, "loan", "return", "B1")
	assert.ErrorIs(t, err, types.ErrNotLoaned)

	out = e.mustRun(t, "loan", "history", "B1")
	assert.Contains(t, out, "lent")
	assert.Contains(t, out, "returned")
}

func TestStrictUpdatesFromConfig(t *testing.T) {
	e := setupEnv(t)
	require.NoError(t, os.MkdirAll(e.configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(e.configDir, "config.yaml"),
		[]byte("backend: sqlite\nstrict_updates: true\n"), 0o644))

	_, err := e.run(t, "user", "update", "00000000T", "Nobody", "Here")
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestLendingLimitFromEnv(t *testing.T) {
	e := setupEnv(t)
	t.Setenv("BIBLIO_LENDING_MAX_ACTIVE_LOANS", "1")

	e.mustRun(t, "user", "add", "12345678Z", "Ada", "Lovelace")
	e.mustRun(t, "book", "add", "B1", "a")
	e.mustRun(t, "book", "add", "B2", "b")
	e.mustRun(t, "loan", "borrow", "B1", "12345678Z")
	_, err := e.run(t, "loan", "borrow", "B2", "12345678Z")
	assert.ErrorIs(t, err, types.ErrLoanLimitExceeded)
}

func TestDataDirFromConfig(t *testing.T) {
	e := setupEnv(t)
	dataDir := filepath.Join(t.TempDir(), "from-config")
	require.NoError(t, os.MkdirAll(e.configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(e.configDir, "config.yaml"),
		[]byte("backend: sqlite\ndata_dir: "+dataDir+"\n"), 0o644))

	root := NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--config-dir", e.configDir, "book", "add", "Dune", "Herbert"})
	require.NoError(t, root.Execute())

	_, err := os.Stat(filepath.Join(dataDir, "books.jsonl"))
	assert.NoError(t, err)
}

func TestUsageErrors(t *testing.T) {
	e := setupEnv(t)

	_, err := e.run(t, "user", "add", "12345678Z")
	require.Error(t, err)
	assert.Equal(t, exitUserError, exitCode(err))

	_, err = e.run(t, "--log-level", "loud", "version")
	require.Error(t, err)
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitSuccess},
		{"policy", types.ErrAlreadyLoaned, exitUserError},
		{"wrapped policy", errors.Join(errors.New("borrow"), types.ErrUnknownBook), exitUserError},
		{"usage", usageErrorf("bad flag"), exitUserError},
		{"attach failure", errors.New("attach store: disk on fire"), exitSysError},
		{"detached store", types.ErrStoreDetached, exitSysError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestExecute_PrintsErrorsOnce(t *testing.T) {
	e := setupEnv(t)

	_, stderr, code, _ := e.execute(t, "user", "add", "12345678Z", "Ada", "Lovelace")
	require.Equal(t, exitSuccess, code)
	assert.Empty(t, stderr, "a successful command writes nothing to stderr")

	_, stderr, code, _ = e.execute(t, "user", "add", "12345678Z", "Ada", "Again")
	assert.Equal(t, exitUserError, code)
	assert.Equal(t, "biblio: duplicate key: user 12345678Z\n", stderr)

	for _, args := range [][]string{
		{"loan", "borrow", "Nope", "12345678Z"},
		{"loan", "return", "Nope"},
	} {
		_, stderr, code, _ = e.execute(t, args...)
		assert.Equal(t, exitUserError, code, "biblio %v", args)
		assert.True(t, strings.HasPrefix(stderr, "biblio: "), "stderr %q", stderr)
		assert.Equal(t, 1, strings.Count(stderr, "\n"), "stderr %q", stderr)
	}
}

func TestExecute_ClosesStoreAfterFailure(t *testing.T) {
	e := setupEnv(t)
	require.NoError(t, os.MkdirAll(e.configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(e.configDir, "config.yaml"),
		[]byte("backend: sqlite\nsync_strategy: on_close\n"), 0o644))

	_, _, code, a := e.execute(t, "user", "add", "12345678Z", "Ada", "Lovelace")
	require.Equal(t, exitSuccess, code)
	assert.Nil(t, a.store)
	data, err := os.ReadFile(filepath.Join(e.dataDir, "users.jsonl"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "12345678Z")

	_, _, code, a = e.execute(t, "loan", "return", "Nope")
	assert.Equal(t, exitUserError, code)
	assert.Nil(t, a.store, "a failed command must still detach the store")
}

func TestOverdueDaysFromEnv(t *testing.T) {
	e := setupEnv(t)
	saved := now
	now = func() time.Time { return time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { now = saved })
	t.Setenv("BIBLIO_LENDING_OVERDUE_DAYS", "5")

	e.mustRun(t, "user", "add", "12345678Z", "Ada", "Lovelace")
	e.mustRun(t, "book", "add", "Dune", "Herbert")
	e.mustRun(t, "loan", "borrow", "Dune", "12345678Z")

	out := e.mustRun(t, "loan", "overdue", "--today", "2022-01-10")
	assert.Contains(t, out, "Dune")
}
