// Package credential keeps the hashed secrets and roles of registered users
// beside the user records. The store and the lending engine never see them;
// callers that need authentication consult a Registry.
package credential

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/mesh-intelligence/biblio/internal/jsonl"
	"github.com/mesh-intelligence/biblio/pkg/types"
)

// FileName is the JSONL file holding credentials inside the data dir.
const FileName = "credentials.jsonl"

// ErrInvalidCredentials is returned by Verify when the password does not
// match the stored hash.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Option configures a Registry.
type Option func(*Registry)

// WithCost sets the bcrypt cost used by Register.
func WithCost(cost int) Option {
	return func(r *Registry) {
		r.cost = cost
	}
}

// Registry maps user ids to credentials and persists them to a JSONL file.
// It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	path  string
	cost  int
	creds map[string]types.Credential
}

// Open loads the registry stored in dataDir. A missing file yields an empty
// registry.
func Open(dataDir string, opts ...Option) (*Registry, error) {
	r := &Registry{
		path:  filepath.Join(dataDir, FileName),
		cost:  bcrypt.DefaultCost,
		creds: make(map[string]types.Credential),
	}
	for _, opt := range opts {
		opt(r)
	}

	records, err := jsonl.ReadAll[types.Credential](r.path)
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}
	for _, c := range records {
		id := types.NormalizeID(c.UserID)
		if id == "" || c.Hash == "" {
			continue
		}
		c.UserID = id
		r.creds[id] = c
	}
	return r, nil
}

// Register stores a bcrypt hash of password with role for userID.
// Returns ErrDuplicateKey if the user already has a credential.
func (r *Registry) Register(userID, password, role string) (*types.Credential, error) {
	userID = types.NormalizeID(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: empty user id", types.ErrInvalidData)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: empty password", types.ErrInvalidData)
	}
	role, err := ParseRole(role)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.creds[userID]; ok {
		return nil, fmt.Errorf("%w: credential for %s", types.ErrDuplicateKey, userID)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), r.cost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	c := types.Credential{UserID: userID, Hash: string(hash), Role: role}
	r.creds[userID] = c
	if err := r.persistLocked(); err != nil {
		delete(r.creds, userID)
		return nil, err
	}
	return &c, nil
}

// Verify checks password against the credential of userID. It returns
// ErrNotFound for an unregistered user and ErrInvalidCredentials for a
// wrong password.
func (r *Registry) Verify(userID, password string) (*types.Credential, error) {
	c, err := r.Get(userID)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(c.Hash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return c, nil
}

// Get returns the credential of userID or ErrNotFound.
func (r *Registry) Get(userID string) (*types.Credential, error) {
	userID = types.NormalizeID(userID)
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.creds[userID]
	if !ok {
		return nil, fmt.Errorf("%w: credential for %s", types.ErrNotFound, userID)
	}
	return &c, nil
}

// Remove drops the credential of userID. Removing a missing one succeeds.
func (r *Registry) Remove(userID string) error {
	userID = types.NormalizeID(userID)
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.creds[userID]
	if !ok {
		return nil
	}
	delete(r.creds, userID)
	if err := r.persistLocked(); err != nil {
		r.creds[userID] = c
		return err
	}
	return nil
}

// Attach composes u with its credential, if any.
func (r *Registry) Attach(u *types.User) *types.RegisteredUser {
	ru := &types.RegisteredUser{User: *u}
	if c, err := r.Get(u.ID); err == nil {
		ru.Credential = c
	}
	return ru
}

// persistLocked rewrites the credentials file ordered by user id.
// The caller must hold r.mu.
func (r *Registry) persistLocked() error {
	ids := make([]string, 0, len(r.creds))
	for id := range r.creds {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	records := make([]types.Credential, 0, len(ids))
	for _, id := range ids {
		records = append(records, r.creds[id])
	}
	if err := jsonl.WriteAll(r.path, records); err != nil {
		return fmt.Errorf("persisting credentials: %w", err)
	}
	return nil
}

// ParseRole maps a role name to RoleNormal or RoleAdmin. An empty string
// means RoleNormal.
func ParseRole(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", types.RoleNormal:
		return types.RoleNormal, nil
	case types.RoleAdmin:
		return types.RoleAdmin, nil
	default:
		return "", fmt.Errorf("%w: %q", types.ErrInvalidRole, s)
	}
}
