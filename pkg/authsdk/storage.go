package authsdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Durable storage keys. Both are always written and removed together.
const (
	StorageKeyToken = "token"
	StorageKeyUser  = "user"
)

var (
	// ErrNoSession is returned by Storage.Load when nothing is stored.
	ErrNoSession = errors.New("authsdk: no stored session")

	// ErrCorruptSession is returned when only one key is present or the
	// user entry does not decode.
	ErrCorruptSession = errors.New("authsdk: corrupt stored session")
)

// Storage persists the session token and user across restarts.
type Storage interface {
	Load(ctx context.Context) (token string, user *User, err error)
	Save(ctx context.Context, token string, user *User) error
	Clear(ctx context.Context) error
}

// decodeEntries turns the raw key values into a session.
func decodeEntries(token string, hasToken bool, rawUser string, hasUser bool) (string, *User, error) {
	switch {
	case !hasToken && !hasUser:
		return "", nil, ErrNoSession
	case !hasToken || !hasUser || token == "":
		return "", nil, ErrCorruptSession
	}

	var u User
	if err := json.Unmarshal([]byte(rawUser), &u); err != nil || u.ID == "" {
		return "", nil, ErrCorruptSession
	}
	return token, &u, nil
}

func encodeUser(user *User) (string, error) {
	if user == nil {
		return "", errors.New("authsdk: nil user")
	}
	b, err := json.Marshal(user)
	if err != nil {
		return "", fmt.Errorf("encode user: %w", err)
	}
	return string(b), nil
}

// ============================================================================
// MemoryStorage
// ============================================================================

// MemoryStorage keeps entries in process memory, keyed like a browser's
// local storage.
type MemoryStorage struct {
	mu      sync.Mutex
	entries map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{entries: make(map[string]string)}
}

func (m *MemoryStorage) Load(_ context.Context) (string, *User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, hasToken := m.entries[StorageKeyToken]
	rawUser, hasUser := m.entries[StorageKeyUser]
	return decodeEntries(token, hasToken, rawUser, hasUser)
}

func (m *MemoryStorage) Save(_ context.Context, token string, user *User) error {
	rawUser, err := encodeUser(user)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[StorageKeyToken] = token
	m.entries[StorageKeyUser] = rawUser
	return nil
}

func (m *MemoryStorage) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, StorageKeyToken)
	delete(m.entries, StorageKeyUser)
	return nil
}

// ============================================================================
// FileStorage
// ============================================================================

// FileStorage keeps both entries in one JSON file, replaced atomically so a
// crash never leaves one key without the other.
type FileStorage struct {
	Path string

	mu sync.Mutex
}

func NewFileStorage(path string) *FileStorage {
	return &FileStorage{Path: path}
}

type fileEntries struct {
	Token *string         `json:"token"`
	User  json.RawMessage `json:"user"`
}

func (f *FileStorage) Load(_ context.Context) (string, *User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil, ErrNoSession
	}
	if err != nil {
		return "", nil, fmt.Errorf("read session file: %w", err)
	}

	var e fileEntries
	if err := json.Unmarshal(data, &e); err != nil {
		return "", nil, ErrCorruptSession
	}

	var token string
	if e.Token != nil {
		token = *e.Token
	}
	hasUser := len(e.User) > 0 && string(e.User) != "null"
	return decodeEntries(token, e.Token != nil, string(e.User), hasUser)
}

func (f *FileStorage) Save(_ context.Context, token string, user *User) error {
	rawUser, err := encodeUser(user)
	if err != nil {
		return err
	}
	data, err := json.Marshal(fileEntries{Token: &token, User: json.RawMessage(rawUser)})
	if err != nil {
		return fmt.Errorf("encode session file: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

func (f *FileStorage) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
