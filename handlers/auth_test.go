package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinicore/handlers"
	"github.com/clinicore/clinicore/internal"
	"github.com/clinicore/clinicore/pkg/authtoken"
)

// fakeUsers is an in-memory UserVerifier.
type fakeUsers struct {
	byUsername map[string]authtoken.User
	passwords  map[string]string
}

func newFakeUsers(users ...authtoken.User) *fakeUsers {
	f := &fakeUsers{
		byUsername: make(map[string]authtoken.User),
		passwords:  make(map[string]string),
	}
	for _, u := range users {
		f.byUsername[u.Username] = u
		f.passwords[u.Username] = "correct-password"
	}
	return f
}

func (f *fakeUsers) VerifyCredentials(_ context.Context, username, password string) (authtoken.User, error) {
	u, ok := f.byUsername[username]
	if !ok || f.passwords[username] != password {
		return authtoken.User{}, handlers.ErrInvalidCredentials
	}
	return u, nil
}

func (f *fakeUsers) FindByID(_ context.Context, id string) (authtoken.User, error) {
	for _, u := range f.byUsername {
		if u.ID == id {
			return u, nil
		}
	}
	return authtoken.User{}, handlers.ErrUserNotFound
}

var drWho = authtoken.User{
	ID:        "user-1",
	Username:  "drwho",
	Email:     "drwho@clinic.example",
	Role:      "doctor",
	FirstName: "John",
	LastName:  "Smith",
}

type fixture struct {
	app    *internal.App
	tokens *authtoken.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	tokens, err := authtoken.NewService(authtoken.NewMemoryStore(), authtoken.Config{
		Issuer:        "clinicore-test",
		AccessSecret:  "access-secret-for-tests",
		RefreshSecret: "refresh-secret-for-tests",
	})
	require.NoError(t, err)

	app := internal.New(
		internal.WithHandlers(handlers.NewAuth(tokens, newFakeUsers(drWho))),
	)
	return &fixture{app: app, tokens: tokens}
}

func (f *fixture) do(method, target string, body any, header http.Header) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	for k, vals := range header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}

	w := httptest.NewRecorder()
	f.app.ServeHTTP(w, req)
	return w
}

func (f *fixture) login(t *testing.T) *authtoken.TokenPair {
	t.Helper()

	w := f.do(http.MethodPost, "/auth/login", map[string]string{
		"username": "drwho",
		"password": "correct-password",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var pair authtoken.TokenPair
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pair))
	return &pair
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": {"Bearer " + token}}
}

func TestLogin(t *testing.T) {
	t.Parallel()

	t.Run("valid credentials return a token pair", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		pair := f.login(t)

		require.NotEmpty(t, pair.AccessToken)
		require.NotEmpty(t, pair.RefreshToken)
		require.Equal(t, "Bearer", pair.TokenType)
		require.Equal(t, int64(900), pair.AccessExpiresIn)
		require.Equal(t, int64(604800), pair.RefreshExpiresIn)

		claims, err := f.tokens.ValidateAccess(pair.AccessToken)
		require.NoError(t, err)
		require.Equal(t, "user-1", claims.UserID)
		require.Equal(t, "doctor", claims.Role)
	})

	t.Run("wrong password is 401", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		w := f.do(http.MethodPost, "/auth/login", map[string]string{
			"username": "drwho",
			"password": "wrong",
		}, nil)

		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown user is 401", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		w := f.do(http.MethodPost, "/auth/login", map[string]string{
			"username": "nobody",
			"password": "whatever",
		}, nil)

		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing fields are 400", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		w := f.do(http.MethodPost, "/auth/login", map[string]string{"username": "drwho"}, nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed body is 400", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader([]byte("{not json")))
		w := httptest.NewRecorder()
		f.app.ServeHTTP(w, req)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("GET on login is 405", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		w := f.do(http.MethodGet, "/auth/login", nil, nil)
		require.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	t.Run("rotation returns a fresh pair", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		pair := f.login(t)

		w := f.do(http.MethodPost, "/auth/refresh", map[string]string{
			"refresh_token": pair.RefreshToken,
		}, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var next authtoken.TokenPair
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &next))
		require.NotEqual(t, pair.RefreshToken, next.RefreshToken)

		_, err := f.tokens.ValidateAccess(next.AccessToken)
		require.NoError(t, err)
	})

	t.Run("bearer header fallback", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		pair := f.login(t)

		w := f.do(http.MethodPost, "/auth/refresh", nil, bearer(pair.RefreshToken))
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("query parameter fallback", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		pair := f.login(t)

		w := f.do(http.MethodPost, "/auth/refresh?token="+pair.RefreshToken, nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing token is 400", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		w := f.do(http.MethodPost, "/auth/refresh", nil, nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("reused token is 401 and revokes everything", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		pair := f.login(t)
		parallel := f.login(t)

		w := f.do(http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": pair.RefreshToken}, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var next authtoken.TokenPair
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &next))

		// Replay of the consumed token.
		w = f.do(http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": pair.RefreshToken}, nil)
		require.Equal(t, http.StatusUnauthorized, w.Code)

		// The rotated descendant died with the family.
		w = f.do(http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": next.RefreshToken}, nil)
		require.Equal(t, http.StatusUnauthorized, w.Code)

		// So did the unrelated parallel session of the same subject.
		w = f.do(http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": parallel.RefreshToken}, nil)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("access token on refresh endpoint is 401", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		pair := f.login(t)

		w := f.do(http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": pair.AccessToken}, nil)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestLogout(t *testing.T) {
	t.Parallel()

	t.Run("revokes the presented session", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		pair := f.login(t)

		w := f.do(http.MethodPost, "/auth/logout", map[string]string{"refresh_token": pair.RefreshToken}, nil)
		require.Equal(t, http.StatusNoContent, w.Code)

		w = f.do(http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": pair.RefreshToken}, nil)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing token is 400", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		w := f.do(http.MethodPost, "/auth/logout", nil, nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestLogoutAll(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	first := f.login(t)
	second := f.login(t)

	w := f.do(http.MethodPost, "/auth/logout-all", nil, bearer(first.AccessToken))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]int64
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, int64(2), body["revoked_count"])

	for _, pair := range []*authtoken.TokenPair{first, second} {
		w = f.do(http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": pair.RefreshToken}, nil)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}
}

func TestSessions(t *testing.T) {
	t.Parallel()

	t.Run("requires authentication", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		w := f.do(http.MethodGet, "/auth/sessions", nil, nil)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("lists active sessions", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		pair := f.login(t)
		f.login(t)

		w := f.do(http.MethodGet, "/auth/sessions", nil, bearer(pair.AccessToken))
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Sessions []authtoken.Session `json:"sessions"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Len(t, body.Sessions, 2)
		for _, s := range body.Sessions {
			require.Equal(t, "user-1", s.UserID)
			require.NotEmpty(t, s.JTI)
		}
	})
}

func TestRevokeSession(t *testing.T) {
	t.Parallel()

	t.Run("revokes one session by jti", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		keep := f.login(t)
		drop := f.login(t)

		claims, err := f.tokens.ValidateRefresh(context.Background(), drop.RefreshToken)
		require.NoError(t, err)

		w := f.do(http.MethodDelete, "/auth/sessions/"+claims.JTI(), nil, bearer(keep.AccessToken))
		require.Equal(t, http.StatusNoContent, w.Code)

		w = f.do(http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": drop.RefreshToken}, nil)
		require.Equal(t, http.StatusUnauthorized, w.Code)

		w = f.do(http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": keep.RefreshToken}, nil)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unknown jti is 404", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		pair := f.login(t)

		w := f.do(http.MethodDelete, "/auth/sessions/00000000-0000-0000-0000-000000000000", nil, bearer(pair.AccessToken))
		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("non-uuid jti fails the route constraint", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		pair := f.login(t)

		w := f.do(http.MethodDelete, "/auth/sessions/not-a-uuid", nil, bearer(pair.AccessToken))
		require.Equal(t, http.StatusNotFound, w.Code)
	})
}
