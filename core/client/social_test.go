package client

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSocialBackend(t *testing.T) (*SessionClient, *capture) {
	t.Helper()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/listapi":
			w.Write([]byte(userSchemaJSON))
		case "/user/facebookLogin":
			w.Write([]byte(`{"username":"bob","fb":{"id":"fb123","name":"Bob"}}`))
		case "/user/twitterLogin":
			w.Write([]byte(`{"username":"bob","tw":{"id":"tw123"}}`))
		case "/user/createUserWithFacebook", "/user/linkUserWithFacebook",
			"/user/getFacebookUserInfo", "/user/postFacebookMessage",
			"/user/getTwitterUserInfo", "/user/postTwitterMessage":
			w.Write([]byte(`{"ok":true}`))
		default:
			http.NotFound(w, r)
		}
	})
	client, cap := newTestClient(t, handler)
	return client.Session("user"), cap
}

func TestLoginWithFacebook(t *testing.T) {
	session, cap := newSocialBackend(t)

	future, err := session.LoginWithFacebook(nil, "fb-token")
	require.NoError(t, err)
	login, err := future.Await()
	require.NoError(t, err)
	assert.Equal(t, "bob", login.Username)
	assert.Equal(t, "fb123", login.Provider["id"])

	assert.True(t, session.IsLoggedIn())
	assert.Equal(t, "bob", session.LoggedInUsername())

	last := cap.last()
	assert.Equal(t, "/user/facebookLogin", last.Path)
	assert.Equal(t, "fb_at=fb-token", last.Query)
}

func TestLoginWithTwitter(t *testing.T) {
	session, cap := newSocialBackend(t)

	future, err := session.LoginWithTwitter(nil, "token", "secret")
	require.NoError(t, err)
	login, err := future.Await()
	require.NoError(t, err)
	assert.Equal(t, "bob", login.Username)
	assert.Equal(t, "tw123", login.Provider["id"])

	last := cap.last()
	assert.Contains(t, last.Query, "tw_tk=token")
	assert.Contains(t, last.Query, "tw_ts=secret")

	_, err = session.LoginWithTwitter(nil, "token", "")
	assert.Error(t, err)
}

func TestCreateUserWithFacebook(t *testing.T) {
	session, cap := newSocialBackend(t)

	future, err := session.CreateUserWithFacebook(nil, "fb-token")
	require.NoError(t, err)
	_, err = future.Await()
	require.NoError(t, err)
	assert.Equal(t, "/user/createUserWithFacebook", cap.last().Path)

	_, err = session.CreateUserWithFacebook(nil, "")
	assert.Error(t, err)
}

func TestLinkAndInfoAndPost(t *testing.T) {
	session, cap := newSocialBackend(t)

	future, err := session.LinkAccountToFacebook(nil, "fb-token")
	require.NoError(t, err)
	_, err = future.Await()
	require.NoError(t, err)
	assert.Equal(t, "/user/linkUserWithFacebook", cap.last().Path)

	future, err = session.FacebookUserInfo(nil)
	require.NoError(t, err)
	_, err = future.Await()
	require.NoError(t, err)
	assert.Equal(t, "/user/getFacebookUserInfo", cap.last().Path)

	future, err = session.PostToTwitter(nil, "hello world")
	require.NoError(t, err)
	_, err = future.Await()
	require.NoError(t, err)
	last := cap.last()
	assert.Equal(t, "/user/postTwitterMessage", last.Path)
	assert.Equal(t, "message=hello+world", last.Query)
}
