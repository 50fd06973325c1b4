package authsdk

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func testUser(id string) *User {
	return &User{ID: id, FirstName: "Ann", LastName: "Lee", Email: "ann@x.com", Role: RoleUser, IsActive: true}
}

func signedIn() State {
	return Reduce(State{}, AuthSucceeded{User: testUser("u1"), Token: "tok-1"})
}

func TestReduceLoginFlow(t *testing.T) {
	t.Parallel()

	s := Reduce(State{}, RequestStarted{Op: OpLogin})
	require.Equal(t, StatusAuthenticating, s.Status)
	require.True(t, s.Loading)
	require.False(t, s.Authenticated)

	s = Reduce(s, AuthSucceeded{User: testUser("u1"), Token: "tok-1"})
	require.Equal(t, StatusAuthenticated, s.Status)
	require.True(t, s.Authenticated)
	require.False(t, s.Loading)
	require.Equal(t, "tok-1", s.Token)
}

func TestReduceAuthFailureKeepsPreviousSession(t *testing.T) {
	t.Parallel()

	s := Reduce(signedIn(), RequestStarted{Op: OpRegister})
	s = Reduce(s, RequestFailed{
		Op:      OpRegister,
		Status:  http.StatusBadRequest,
		Message: MsgUserExists,
	})

	require.Equal(t, StatusAuthenticated, s.Status, "status must agree with the surviving credentials")
	require.Equal(t, MsgUserExists, s.Error)
	require.True(t, s.Authenticated, "non-authorization failures keep credentials")
	require.Equal(t, "tok-1", s.Token)
	require.False(t, s.Loading)

	s = Reduce(s, ErrorCleared{})
	require.Equal(t, StatusAuthenticated, s.Status)
	require.Empty(t, s.Error)
}

func TestReduceAuthFailureStatusMatchesCredentials(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name   string
		start  State
		op     Op
		status int
		want   Status
	}{
		{"anonymous login rejected", State{}, OpLogin, http.StatusBadRequest, StatusAuthError},
		{"anonymous register server error", State{}, OpRegister, http.StatusInternalServerError, StatusAuthError},
		{"signed in login rejected", signedIn(), OpLogin, http.StatusBadRequest, StatusAuthenticated},
		{"signed in register conflict", signedIn(), OpRegister, http.StatusBadRequest, StatusAuthenticated},
		{"signed in unauthorized", signedIn(), OpLogin, http.StatusUnauthorized, StatusAnonymous},
	} {
		t.Run(tt.name, func(t *testing.T) {
			s := Reduce(tt.start, RequestStarted{Op: tt.op})
			s = Reduce(s, RequestFailed{Op: tt.op, Status: tt.status, Message: "boom"})

			require.Equal(t, tt.want, s.Status)
			require.Equal(t, "boom", s.Error)
			require.Equal(t, s.Authenticated, s.Status == StatusAuthenticated)
		})
	}
}

func TestReduceUnauthorizedClearsEverything(t *testing.T) {
	t.Parallel()

	for _, op := range []Op{OpGetProfile, OpUpdateProfile, OpChangePassword, OpLogin} {
		s := Reduce(signedIn(), RequestFailed{Op: op, Status: http.StatusUnauthorized, Message: "nope"})
		require.Equal(t, StatusAnonymous, s.Status, op)
		require.Nil(t, s.User, op)
		require.Empty(t, s.Token, op)
		require.False(t, s.Authenticated, op)
		require.Equal(t, "nope", s.Error, op)
	}
}

func TestReduceProfileAfterLogoutIsIgnored(t *testing.T) {
	t.Parallel()

	s := Reduce(signedIn(), LoggedOut{})
	require.Equal(t, State{}, s)

	s = Reduce(s, ProfileLoaded{User: testUser("u1")})
	require.False(t, s.Authenticated)
	require.Nil(t, s.User)
}

func TestReduceProfileAndPasswordMerge(t *testing.T) {
	t.Parallel()

	updated := testUser("u1")
	updated.FirstName = "Bea"
	updated.IsVerified = true

	s := Reduce(signedIn(), ProfileLoaded{User: updated})
	require.Equal(t, "Bea", s.User.FirstName)
	require.True(t, s.EmailVerified)

	s = Reduce(s, PasswordChanged{Token: "tok-2"})
	require.Equal(t, "tok-2", s.Token)
	require.True(t, s.Authenticated)
}

func TestReduceHydrated(t *testing.T) {
	t.Parallel()

	s := Reduce(State{}, Hydrated{User: testUser("u1"), Token: "tok"})
	require.Equal(t, StatusAuthenticated, s.Status)

	s = Reduce(State{}, Hydrated{Token: "tok"})
	require.Equal(t, StatusAnonymous, s.Status)
	require.False(t, s.Authenticated)
}

func TestSessionCachePersistence(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	storage := NewMemoryStorage()
	cache := NewSessionCache(storage)

	var seen []Status
	unsubscribe := cache.Subscribe(func(s State) { seen = append(seen, s.Status) })

	_, err := cache.Dispatch(ctx, RequestStarted{Op: OpLogin})
	require.NoError(t, err)
	_, err = cache.Dispatch(ctx, RequestFailed{Op: OpLogin, Status: http.StatusBadRequest, Message: MsgValidationFailed})
	require.NoError(t, err)

	_, _, err = storage.Load(ctx)
	require.ErrorIs(t, err, ErrNoSession, "failures persist nothing")

	_, err = cache.Dispatch(ctx, AuthSucceeded{User: testUser("u1"), Token: "tok-1"})
	require.NoError(t, err)

	token, user, err := storage.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "tok-1", token)
	require.Equal(t, "u1", user.ID)

	_, err = cache.Dispatch(ctx, PasswordChanged{Token: "tok-2"})
	require.NoError(t, err)
	token, _, err = storage.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "tok-2", token)

	_, err = cache.Dispatch(ctx, RequestFailed{Op: OpGetProfile, Status: http.StatusUnauthorized})
	require.NoError(t, err)
	_, _, err = storage.Load(ctx)
	require.ErrorIs(t, err, ErrNoSession)

	unsubscribe()
	_, _ = cache.Dispatch(ctx, LoggedOut{})
	require.Equal(t, []Status{
		StatusAuthenticating, StatusAuthError, StatusAuthenticated, StatusAuthenticated, StatusAnonymous,
	}, seen)
}

type failingStorage struct{ *MemoryStorage }

func (f *failingStorage) Clear(context.Context) error { return errors.New("disk gone") }

func TestSessionCacheLogoutIsLocallyAuthoritative(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cache := NewSessionCache(&failingStorage{MemoryStorage: NewMemoryStorage()})
	_, err := cache.Dispatch(ctx, AuthSucceeded{User: testUser("u1"), Token: "tok"})
	require.NoError(t, err)

	st, err := cache.Dispatch(ctx, LoggedOut{})
	require.Error(t, err)
	require.Equal(t, StatusAnonymous, st.Status)
	require.False(t, cache.State().Authenticated)
}

func TestSessionCacheHydrate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("both entries", func(t *testing.T) {
		storage := NewMemoryStorage()
		require.NoError(t, storage.Save(ctx, "tok", testUser("u1")))

		st, err := NewSessionCache(storage).Hydrate(ctx)
		require.NoError(t, err)
		require.True(t, st.Authenticated)
	})

	t.Run("half written is purged", func(t *testing.T) {
		storage := NewMemoryStorage()
		storage.setRaw(StorageKeyToken, "tok")

		st, err := NewSessionCache(storage).Hydrate(ctx)
		require.NoError(t, err)
		require.False(t, st.Authenticated)

		_, _, err = storage.Load(ctx)
		require.ErrorIs(t, err, ErrNoSession)
	})

	t.Run("corrupt user is purged", func(t *testing.T) {
		storage := NewMemoryStorage()
		storage.setRaw(StorageKeyToken, "tok")
		storage.setRaw(StorageKeyUser, "{not json")

		st, err := NewSessionCache(storage).Hydrate(ctx)
		require.NoError(t, err)
		require.Equal(t, StatusAnonymous, st.Status)

		_, _, err = storage.Load(ctx)
		require.ErrorIs(t, err, ErrNoSession)
	})
}

func TestSessionCacheConcurrentDispatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cache := NewSessionCache(nil)
	_, err := cache.Dispatch(ctx, AuthSucceeded{User: testUser("u1"), Token: "tok"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = cache.Dispatch(ctx, RequestFailed{Op: OpGetProfile, Status: http.StatusUnauthorized})
		}()
	}
	wg.Wait()

	require.Equal(t, StatusAnonymous, cache.State().Status)
	require.False(t, cache.State().Authenticated)
}
