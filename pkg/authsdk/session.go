package authsdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// Status is the coarse authentication state of a client session.
type Status int

const (
	StatusAnonymous Status = iota
	StatusAuthenticating
	StatusAuthenticated
	StatusAuthError
)

func (s Status) String() string {
	switch s {
	case StatusAnonymous:
		return "anonymous"
	case StatusAuthenticating:
		return "authenticating"
	case StatusAuthenticated:
		return "authenticated"
	case StatusAuthError:
		return "auth_error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Op names the request an event belongs to.
type Op string

const (
	OpRegister       Op = "register"
	OpLogin          Op = "login"
	OpLogout         Op = "logout"
	OpGetProfile     Op = "getProfile"
	OpUpdateProfile  Op = "updateProfile"
	OpChangePassword Op = "changePassword"
)

// authenticates reports whether op establishes a new session.
func (o Op) authenticates() bool {
	return o == OpRegister || o == OpLogin
}

// State is an immutable snapshot of the client session.
//
// Authenticated is true exactly when both User and Token are set. Every
// authorization failure clears both.
type State struct {
	Status        Status
	User          *User
	Token         string
	Authenticated bool
	Loading       bool
	Error         string
	Errors        []FieldError
	EmailVerified bool
}

// ============================================================================
// Events
// ============================================================================

// Event is an input to Reduce.
type Event interface{ isEvent() }

type (
	// RequestStarted marks a request as in flight.
	RequestStarted struct{ Op Op }

	// AuthSucceeded is a successful register or login.
	AuthSucceeded struct {
		User  *User
		Token string
	}

	// RequestFailed is any failed request. Status 401 ends the session.
	RequestFailed struct {
		Op      Op
		Status  int
		Message string
		Errors  []FieldError
	}

	// ProfileLoaded replaces the cached user after a profile read or update.
	ProfileLoaded struct{ User *User }

	// PasswordChanged swaps in the token issued by a password change.
	PasswordChanged struct{ Token string }

	// LoggedOut ends the session locally, whatever the server said.
	LoggedOut struct{}

	// ErrorCleared dismisses the last error.
	ErrorCleared struct{}

	// Hydrated seeds the state from durable storage at startup.
	Hydrated struct {
		User  *User
		Token string
	}
)

func (RequestStarted) isEvent()  {}
func (AuthSucceeded) isEvent()   {}
func (RequestFailed) isEvent()   {}
func (ProfileLoaded) isEvent()   {}
func (PasswordChanged) isEvent() {}
func (LoggedOut) isEvent()       {}
func (ErrorCleared) isEvent()    {}
func (Hydrated) isEvent()        {}

// endsSession reports whether ev forces the session back to anonymous.
func endsSession(ev Event) bool {
	switch e := ev.(type) {
	case LoggedOut:
		return true
	case RequestFailed:
		return e.Status == http.StatusUnauthorized
	}
	return false
}

// Reduce returns the state that follows s after ev. It has no side effects.
func Reduce(s State, ev Event) State {
	switch e := ev.(type) {
	case RequestStarted:
		s.Loading = true
		s.Error = ""
		s.Errors = nil
		if e.Op.authenticates() {
			s.Status = StatusAuthenticating
		}

	case AuthSucceeded:
		if e.User == nil || e.Token == "" {
			return Reduce(s, RequestFailed{Op: OpLogin, Message: MsgUnexpectedServerReply})
		}
		s = State{Status: StatusAuthenticated, User: e.User, Token: e.Token}

	case RequestFailed:
		s.Loading = false
		s.Error = e.Message
		s.Errors = e.Errors
		switch {
		case e.Status == http.StatusUnauthorized:
			s.Status = StatusAnonymous
			s.User = nil
			s.Token = ""
		case e.Op.authenticates(), s.Status == StatusAuthenticating:
			// A failed sign-in attempt leaves an existing session signed in;
			// the message is still reported through Error.
			s.Status = StatusAuthError
			if s.User != nil && s.Token != "" {
				s.Status = StatusAuthenticated
			}
		}

	case ProfileLoaded:
		s.Loading = false
		// A profile that lands after logout must not revive the session.
		if s.Token == "" || e.User == nil {
			break
		}
		s.User = e.User
		s.Status = StatusAuthenticated
		s.Error = ""
		s.Errors = nil

	case PasswordChanged:
		s.Loading = false
		s.Error = ""
		s.Errors = nil
		if s.Token != "" && e.Token != "" {
			s.Token = e.Token
		}

	case LoggedOut:
		s = State{}

	case ErrorCleared:
		s.Error = ""
		s.Errors = nil
		if s.Status == StatusAuthError {
			s.Status = StatusAnonymous
			if s.User != nil && s.Token != "" {
				s.Status = StatusAuthenticated
			}
		}

	case Hydrated:
		s = State{}
		if e.User != nil && e.Token != "" {
			s.Status = StatusAuthenticated
			s.User = e.User
			s.Token = e.Token
		}
	}

	s.Authenticated = s.User != nil && s.Token != ""
	s.EmailVerified = s.User != nil && s.User.IsVerified
	return s
}

// ============================================================================
// SessionCache
// ============================================================================

// SessionCache owns the client session: it applies events through Reduce,
// mirrors credentials into durable Storage and notifies subscribers.
// It is safe for concurrent use.
type SessionCache struct {
	storage Storage

	mu      sync.Mutex
	state   State
	subs    map[int]func(State)
	nextSub int
}

// NewSessionCache creates an anonymous cache backed by storage. A nil
// storage keeps the session in memory only.
func NewSessionCache(storage Storage) *SessionCache {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	return &SessionCache{
		storage: storage,
		subs:    make(map[int]func(State)),
	}
}

// State returns the current snapshot.
func (c *SessionCache) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn to run after every transition. The returned func
// removes the subscription.
func (c *SessionCache) Subscribe(fn func(State)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Dispatch applies ev and persists the result. Session-ending events purge
// storage unconditionally; the transition happens even if storage fails, and
// the storage error is returned.
func (c *SessionCache) Dispatch(ctx context.Context, ev Event) (State, error) {
	c.mu.Lock()
	prev := c.state
	next := Reduce(prev, ev)
	c.state = next
	err := c.persist(ctx, ev, prev, next)
	subs := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
	return next, err
}

// persist runs under c.mu so storage always matches the latest state.
func (c *SessionCache) persist(ctx context.Context, ev Event, prev, next State) error {
	if endsSession(ev) {
		if err := c.storage.Clear(ctx); err != nil {
			return fmt.Errorf("clear session storage: %w", err)
		}
		return nil
	}

	switch ev.(type) {
	case AuthSucceeded, ProfileLoaded, PasswordChanged:
		if !next.Authenticated || (next.Token == prev.Token && next.User == prev.User) {
			return nil
		}
		if err := c.storage.Save(ctx, next.Token, next.User); err != nil {
			return fmt.Errorf("save session storage: %w", err)
		}
	}
	return nil
}

// Hydrate restores the session from storage. Corrupt or half-written
// entries are purged and the cache stays anonymous.
func (c *SessionCache) Hydrate(ctx context.Context) (State, error) {
	token, user, err := c.storage.Load(ctx)
	switch {
	case err == nil:
		return c.Dispatch(ctx, Hydrated{User: user, Token: token})
	case errors.Is(err, ErrNoSession):
		return c.Dispatch(ctx, Hydrated{})
	case errors.Is(err, ErrCorruptSession):
		st, _ := c.Dispatch(ctx, Hydrated{})
		if clearErr := c.storage.Clear(ctx); clearErr != nil {
			return st, fmt.Errorf("purge corrupt session: %w", clearErr)
		}
		return st, nil
	default:
		st, _ := c.Dispatch(ctx, Hydrated{})
		return st, fmt.Errorf("load session storage: %w", err)
	}
}
