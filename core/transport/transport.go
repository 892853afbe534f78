// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

/*
Package transport dispatches request descriptors asynchronously.

The executor either talks HTTP to the real backend or, like the in-process
test clients of the backend itself, directly to a mux router through recorded
pseudo-requests. Signed requests go through an OAuth1 signing client, session
requests through a cookie-jar client. Every execution resolves its future
exactly once.
*/
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dghubble/oauth1"
	"github.com/gorilla/mux"
	"github.com/tidwall/gjson"

	"github.com/relabs-tech/cirrus/core/async"
	"github.com/relabs-tech/cirrus/core/logger"
	"github.com/relabs-tech/cirrus/core/request"
)

// StatusError reports a response with an unexpected HTTP status. Detail
// carries the server-reported field errors when the response body could be
// parsed, otherwise the raw body.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Detail)
}

// BodyFunc serializes a request body into the wire stream.
type BodyFunc func(w io.Writer) error

// Options control a single execution.
type Options struct {
	// ExpectedStatus, when non-zero, demands this exact status code.
	// When zero, any 2xx response is a success.
	ExpectedStatus int
}

// swappableJar is a cookie jar whose backing jar can be replaced while
// requests are in flight. http.Client reads its Jar field without locking,
// so the session client keeps this one jar for its whole lifetime and a
// logout swaps the inner jar through it instead.
type swappableJar struct {
	mu    sync.Mutex
	inner http.CookieJar
}

func newSwappableJar() *swappableJar {
	jar, _ := cookiejar.New(nil)
	return &swappableJar{inner: jar}
}

func (j *swappableJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.backing().SetCookies(u, cookies)
}

func (j *swappableJar) Cookies(u *url.URL) []*http.Cookie {
	return j.backing().Cookies(u)
}

func (j *swappableJar) backing() http.CookieJar {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.inner
}

func (j *swappableJar) reset() {
	jar, _ := cookiejar.New(nil)
	j.mu.Lock()
	j.inner = jar
	j.mu.Unlock()
}

// Executor performs requests asynchronously and never blocks the caller.
type Executor struct {
	router *mux.Router

	signingClient *http.Client
	sessionClient *http.Client
	jar           *swappableJar
}

// New creates an executor that signs data requests with the given OAuth
// consumer credentials and sends session requests with a cookie jar.
func New(consumerKey, consumerSecret string) *Executor {
	config := oauth1.NewConfig(consumerKey, consumerSecret)
	signing := config.Client(oauth1.NoContext, oauth1.NewToken("", ""))
	signing.Timeout = 20 * time.Second

	jar := newSwappableJar()
	return &Executor{
		signingClient: signing,
		sessionClient: &http.Client{Timeout: 20 * time.Second, Jar: jar},
		jar:           jar,
	}
}

// NewWithRouter creates an executor that makes pseudo-requests directly to
// the mux router, without any network or signing. It is the tool of choice
// for unit tests and for in-process use against an embedded backend.
func NewWithRouter(router *mux.Router) *Executor {
	return &Executor{router: router}
}

// ResetJar drops all session cookies. A request that already read its
// cookies before the reset may still send them; any request dispatched
// afterwards starts with an empty jar.
func (e *Executor) ResetJar() {
	if e.jar == nil {
		return
	}
	e.jar.reset()
}

// Execute dispatches the described request asynchronously. If body is not
// nil it is streamed as the request body. The returned future resolves
// exactly once with the raw response body or a translated error.
//
// There is no operation-level cancellation or timeout; the transport
// client's own timeout is the only bound.
func (e *Executor) Execute(ctx context.Context, desc *request.Descriptor, body BodyFunc, opts Options) *async.Future[[]byte] {
	future := async.NewFuture[[]byte]()
	ctx, rlog := logger.ContextWithLogger(ctx)
	rlog = rlog.WithField("operation", string(desc.Operation)).
		WithField("method", desc.Method).WithField("url", desc.URL)

	go func() {
		status, resBody, err := e.perform(ctx, desc, body)
		if err != nil {
			rlog.WithError(err).Debug("request failed")
			future.Fail(err)
			return
		}
		if !statusOK(status, opts) {
			err = translateError(status, resBody)
			rlog.WithField("status", status).WithError(err).Debug("request rejected")
			future.Fail(err)
			return
		}
		rlog.WithField("status", status).Debug("request completed")
		future.Complete(resBody)
	}()
	return future
}

func (e *Executor) perform(ctx context.Context, desc *request.Descriptor, body BodyFunc) (int, []byte, error) {
	if e.router != nil {
		return e.performOnRouter(ctx, desc, body)
	}

	var bodyReader io.Reader
	if body != nil {
		pr, pw := io.Pipe()
		bodyReader = pr
		go func() {
			pw.CloseWithError(body(pw))
		}()
	}

	r, err := http.NewRequestWithContext(ctx, desc.Method, desc.URL, bodyReader)
	if err != nil {
		return 0, nil, err
	}
	for key, values := range desc.Header {
		for _, value := range values {
			r.Header.Add(key, value)
		}
	}

	res, err := e.client(desc).Do(r)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()
	resBody, _ := io.ReadAll(res.Body)
	return res.StatusCode, resBody, nil
}

func (e *Executor) performOnRouter(ctx context.Context, desc *request.Descriptor, body BodyFunc) (int, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		var buf strings.Builder
		if err := body(&buf); err != nil {
			return 0, nil, err
		}
		bodyReader = strings.NewReader(buf.String())
	}
	r, err := http.NewRequestWithContext(ctx, desc.Method, desc.URL, bodyReader)
	if err != nil {
		return 0, nil, err
	}
	for key, values := range desc.Header {
		for _, value := range values {
			r.Header.Add(key, value)
		}
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, r)
	res := rec.Result()
	return res.StatusCode, rec.Body.Bytes(), nil
}

func (e *Executor) client(desc *request.Descriptor) *http.Client {
	if desc.Auth == request.AuthSession {
		return e.sessionClient
	}
	return e.signingClient
}

func statusOK(status int, opts Options) bool {
	if opts.ExpectedStatus != 0 {
		return status == opts.ExpectedStatus
	}
	return status >= 200 && status < 300
}

// translateError folds a structured JSON error body into a descriptive
// error. Translation is best effort and falls back to the raw body.
func translateError(status int, body []byte) error {
	detail := strings.TrimSpace(string(body))

	parsed := gjson.ParseBytes(body)
	if parsed.IsObject() {
		var lines []string
		parsed.ForEach(func(key, value gjson.Result) bool {
			lines = append(lines, key.String()+": "+value.String())
			return true
		})
		if len(lines) > 0 {
			detail = strings.Join(lines, "\n")
		}
	}
	return &StatusError{StatusCode: status, Detail: detail}
}
