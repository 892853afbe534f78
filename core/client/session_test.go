package client

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userSchemaJSON = `{
	"user": { "properties": {
		"username": { "identity": true, "type": "string" },
		"password": { "type": "string" }
	}}
}`

// newSessionBackend serves the user schema plus the session endpoints.
func newSessionBackend(t *testing.T) (*SessionClient, *capture) {
	t.Helper()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/listapi":
			w.Write([]byte(userSchemaJSON))
		case "/user/login":
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "s3cr3t"})
			w.Write([]byte(`{"username":"bob"}`))
		case "/user/logout":
			w.Write([]byte(`{}`))
		case "/user/forgotPassword":
			w.Write([]byte(`{}`))
		default:
			http.NotFound(w, r)
		}
	})
	client, cap := newTestClient(t, handler)
	return client.Session("user"), cap
}

func TestLogin(t *testing.T) {
	session, cap := newSessionBackend(t)

	future, err := session.Login(nil, map[string]string{"username": "bob", "password": "pw"})
	require.NoError(t, err)
	doc, err := future.Await()
	require.NoError(t, err)
	assert.Equal(t, "bob", doc["username"])

	assert.True(t, session.IsLoggedIn())
	assert.Equal(t, "bob", session.LoggedInUsername())

	// the login request carries the credentials as query parameters and no signature
	last := cap.last()
	assert.Equal(t, "/user/login", last.Path)
	assert.Contains(t, last.Query, "username=bob")
	assert.Contains(t, last.Query, "password=pw")
	assert.Empty(t, last.Header.Get("Authorization"))
}

func TestLogin_EmptyCredentials(t *testing.T) {
	session, cap := newSessionBackend(t)
	_, err := session.Login(nil, nil)
	assert.Error(t, err)
	assert.Equal(t, 0, cap.count())
}

func TestLogin_MissingUsernameField(t *testing.T) {
	session, cap := newSessionBackend(t)

	// credentials that do not name the user cannot establish a session
	future, err := session.Login(nil, map[string]string{"password": "pw"})
	require.NoError(t, err)
	_, err = future.Await()
	assert.Error(t, err)
	assert.False(t, session.IsLoggedIn())

	// only the schema was fetched, the login endpoint was never called
	assert.Equal(t, 1, cap.count())
	assert.Equal(t, "/listapi", cap.last().Path)
}

func TestIsLoggedIn_ExpiresAfterThirtyMinutes(t *testing.T) {
	session, _ := newSessionBackend(t)

	base := time.Now()
	now := base
	session.now = func() time.Time { return now }

	future, err := session.Login(nil, map[string]string{"username": "bob", "password": "pw"})
	require.NoError(t, err)
	_, err = future.Await()
	require.NoError(t, err)
	assert.True(t, session.IsLoggedIn())

	now = base.Add(29 * time.Minute)
	assert.True(t, session.IsLoggedIn())

	// the session ages out locally, without any further call
	now = base.Add(31 * time.Minute)
	assert.False(t, session.IsLoggedIn())
	assert.Empty(t, session.LoggedInUsername())
}

func TestLogout_NoOpWhenNeverLoggedIn(t *testing.T) {
	session, cap := newSessionBackend(t)

	future, err := session.Logout(nil)
	require.NoError(t, err)
	_, err = future.Await()
	require.NoError(t, err)
	assert.Equal(t, 0, cap.count())
}

func TestLogout(t *testing.T) {
	session, cap := newSessionBackend(t)

	loginFuture, err := session.Login(nil, map[string]string{"username": "bob", "password": "pw"})
	require.NoError(t, err)
	_, err = loginFuture.Await()
	require.NoError(t, err)

	logoutFuture, err := session.Logout(nil)
	require.NoError(t, err)
	_, err = logoutFuture.Await()
	require.NoError(t, err)

	// the logout request still carried the session cookie; the jar is
	// replaced only after completion
	last := cap.last()
	assert.Equal(t, "/user/logout", last.Path)
	assert.Contains(t, last.Query, "username=bob")
	assert.Contains(t, last.Header.Get("Cookie"), "session=s3cr3t")

	assert.False(t, session.IsLoggedIn())
	assert.Empty(t, session.LoggedInUsername())
}

func TestForgotPassword(t *testing.T) {
	session, cap := newSessionBackend(t)

	future, err := session.ForgotPassword(nil, "bob")
	require.NoError(t, err)
	_, err = future.Await()
	require.NoError(t, err)

	last := cap.last()
	assert.Equal(t, "/user/forgotPassword", last.Path)
	assert.Equal(t, "username=bob", last.Query)

	_, err = session.ForgotPassword(nil, " ")
	assert.Error(t, err)
}
