package schema

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/cirrus/core"
	"github.com/relabs-tech/cirrus/core/request"
	"github.com/relabs-tech/cirrus/core/transport"
)

var descriptorJSON = `{
	"messages": {
		"properties": {
			"message": { "type": "string" },
			"messages_id": { "identity": true, "type": "string" },
			"comments": { "$ref": "comments" }
		}
	},
	"comments": {
		"properties": {
			"comments_id": { "identity": true, "type": "string" },
			"text": { "type": "string" }
		}
	},
	"user": {
		"properties": {
			"username": { "identity": true, "type": "string" },
			"password": { "type": "string" },
			"age": { "type": "integer" }
		}
	},
	"broken": {
		"properties": {
			"whatever": { "type": "string" }
		}
	}
}`

func TestDescriptor_PrimaryKeyField(t *testing.T) {
	d, err := ParseDescriptor([]byte(descriptorJSON))
	require.NoError(t, err)

	field, err := d.PrimaryKeyField("messages", "")
	require.NoError(t, err)
	assert.Equal(t, "messages_id", field)

	// a related field follows its $ref to the referenced type
	field, err = d.PrimaryKeyField("messages", "comments")
	require.NoError(t, err)
	assert.Equal(t, "comments_id", field)

	_, err = d.PrimaryKeyField("nosuchtype", "")
	assert.Error(t, err)

	_, err = d.PrimaryKeyField("broken", "")
	assert.ErrorContains(t, err, "identity column")

	_, err = d.PrimaryKeyField("messages", "message")
	assert.ErrorContains(t, err, "$ref")
}

func TestDescriptor_DeclarationOrderWins(t *testing.T) {
	// two identity-flagged fields: the first declared one is the identity column
	d, err := ParseDescriptor([]byte(`{
		"odd": { "properties": {
			"first": { "identity": true },
			"second": { "identity": true }
		}}
	}`))
	require.NoError(t, err)

	field, err := d.PrimaryKeyField("odd", "")
	require.NoError(t, err)
	assert.Equal(t, "first", field)
}

func TestParseDescriptor_Invalid(t *testing.T) {
	_, err := ParseDescriptor([]byte(`["not","an","object"]`))
	assert.Error(t, err)
	_, err = ParseDescriptor([]byte(`no json at all`))
	assert.Error(t, err)
}

func newTestCache(t *testing.T, handler http.Handler) (*Cache, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	builder := request.NewBuilder("cirrusapi.com", 0).WithBaseURL(core.SubdomainAPI, server.URL)
	return NewCache(builder, transport.New("key", "secret")), server
}

func TestCache_SingleFlight(t *testing.T) {
	var fetches int32
	cache, _ := newTestCache(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/listapi", r.URL.Path)
		atomic.AddInt32(&fetches, 1)
		w.Write([]byte(descriptorJSON))
	}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			field, err := cache.PrimaryKeyField(nil, "messages", "").Await()
			assert.NoError(t, err)
			assert.Equal(t, "messages_id", field)
		}()
	}
	wg.Wait()

	// later calls reuse the cached descriptor as well
	field, err := cache.PrimaryKeyField(nil, "user", "").Await()
	require.NoError(t, err)
	assert.Equal(t, "username", field)

	assert.Equal(t, int32(1), atomic.LoadInt32(&fetches))
}

func TestCache_FailedFetchIsRetried(t *testing.T) {
	var fetches int32
	cache, _ := newTestCache(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&fetches, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(descriptorJSON))
	}))

	_, err := cache.Get(nil).Await()
	require.Error(t, err)

	d, err := cache.Get(nil).Await()
	require.NoError(t, err)
	assert.True(t, d.HasType("messages"))
}

func TestCache_BlankType(t *testing.T) {
	cache := NewCache(request.NewBuilder("cirrusapi.com", 0), transport.New("key", "secret"))
	_, err := cache.PrimaryKeyField(nil, " ", "").Await()
	assert.Error(t, err)
}

func TestValidator(t *testing.T) {
	d, err := ParseDescriptor([]byte(descriptorJSON))
	require.NoError(t, err)

	v, err := NewValidator(d, "user")
	require.NoError(t, err)
	assert.True(t, v.HasSchema("user"))
	assert.False(t, v.HasSchema("messages"))

	err = v.ValidateStruct(map[string]interface{}{"username": "bob", "age": 42}, "user")
	assert.NoError(t, err)

	err = v.ValidateStruct(map[string]interface{}{"username": "bob", "age": "not a number"}, "user")
	assert.Error(t, err)

	err = v.ValidateString(`{"username":"bob"}`, "messages")
	assert.Error(t, err)

	_, err = NewValidator(d, "nosuchtype")
	assert.Error(t, err)
}
