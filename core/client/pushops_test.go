package client

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/relabs-tech/cirrus/core/push"
)

type staticTokenSource struct {
	token push.Token
}

func (s staticTokenSource) Token() (push.Token, error) {
	return s.token, nil
}

func TestRegisterPushToken(t *testing.T) {
	client, cap := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))

	token, err := push.NewToken(push.PlatformAndroid, "reg-id-1")
	require.NoError(t, err)

	future, err := client.RegisterPushToken(nil, "bob", token)
	require.NoError(t, err)
	_, err = future.Await()
	require.NoError(t, err)

	last := cap.last()
	assert.Equal(t, http.MethodPost, last.Method)
	assert.Equal(t, "/register_device_token_universal", last.Path)
	assert.Equal(t, "bob", gjson.GetBytes(last.Body, "userId").String())
	assert.Equal(t, "android", gjson.GetBytes(last.Body, "token.type").String())
	assert.Equal(t, "reg-id-1", gjson.GetBytes(last.Body, "token.token").String())

	_, err = client.RegisterPushToken(nil, " ", token)
	assert.Error(t, err)
}

func TestRegisterDevice(t *testing.T) {
	client, cap := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))

	token, _ := push.NewToken(push.PlatformIOS, "device-token-1")
	future, err := client.RegisterDevice(nil, "bob", staticTokenSource{token: token})
	require.NoError(t, err)
	_, err = future.Await()
	require.NoError(t, err)
	assert.Equal(t, "ios", gjson.GetBytes(cap.last().Body, "token.type").String())

	_, err = client.RegisterDevice(nil, "bob", nil)
	assert.Error(t, err)
}

func TestPushToUsers(t *testing.T) {
	client, cap := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))

	payload := push.NewPayload().WithBadge(1).WithAlert("hi")
	future, err := client.PushToUsers(nil, payload, []string{"bob", "alice"})
	require.NoError(t, err)
	_, err = future.Await()
	require.NoError(t, err)

	last := cap.last()
	assert.Equal(t, "/push_universal_broadcast", last.Path)
	assert.Equal(t, "hi", gjson.GetBytes(last.Body, "kvPairs.alert").String())
	assert.Equal(t, int64(1), gjson.GetBytes(last.Body, "kvPairs.badge").Int())
	assert.Equal(t, "bob", gjson.GetBytes(last.Body, "userIds.0").String())
	assert.Equal(t, "alice", gjson.GetBytes(last.Body, "userIds.1").String())

	_, err = client.PushToUsers(nil, payload, nil)
	assert.Error(t, err)
}

func TestPushToTokens(t *testing.T) {
	client, cap := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))

	android, _ := push.NewToken(push.PlatformAndroid, "a1")
	ios, _ := push.NewToken(push.PlatformIOS, "i1")

	payload := push.NewPayload().WithSound("ding.caf")
	future, err := client.PushToTokens(nil, payload, []push.Token{android, ios})
	require.NoError(t, err)
	_, err = future.Await()
	require.NoError(t, err)

	last := cap.last()
	assert.Equal(t, "ding.caf", gjson.GetBytes(last.Body, "kvPairs.sound").String())
	assert.Equal(t, "android", gjson.GetBytes(last.Body, "tokens.0.type").String())
	assert.Equal(t, "i1", gjson.GetBytes(last.Body, "tokens.1.token").String())

	_, err = client.PushToTokens(nil, payload, nil)
	assert.Error(t, err)
}
