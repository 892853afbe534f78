// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package client

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/relabs-tech/cirrus/core"
	"github.com/relabs-tech/cirrus/core/async"
	"github.com/relabs-tech/cirrus/core/logger"
	"github.com/relabs-tech/cirrus/core/request"
)

// fixed sub-endpoints of the user schema
const (
	loginEndpoint          = "login"
	logoutEndpoint         = "logout"
	forgotPasswordEndpoint = "forgotPassword"
)

// sessionValidity is the client-side session heuristic: a session is
// considered logged in for this long after a successful login, without any
// server round-trip. Callers must tolerate false positives if the server
// session expired earlier.
const sessionValidity = 30 * time.Minute

// SessionClient extends the client with login/logout state and the
// session-cookie authenticated user operations. Session state belongs
// exclusively to one SessionClient and is only mutated through its methods.
type SessionClient struct {
	*Client
	userSchema string

	now func() time.Time

	mu            sync.Mutex
	username      string
	usernameField string
	loggedInAt    time.Time
}

// Session returns a session client on top of this client, for the given
// user schema type.
func (c *Client) Session(userSchema string) *SessionClient {
	return &SessionClient{
		Client:     c,
		userSchema: userSchema,
		now:        time.Now,
	}
}

// Login logs a user in with the given credentials.
//
// The username field of the credentials map is resolved as the user
// schema's identity column through the schema cache; the credentials travel
// as query parameters and the server's session cookie establishes
// cookie-based auth for subsequent session operations.
func (s *SessionClient) Login(ctx context.Context, credentials map[string]string) (*async.Future[Document], error) {
	if len(credentials) == 0 {
		return nil, fmt.Errorf("credentials must not be empty")
	}

	out := async.NewFuture[Document]()
	s.schemas.PrimaryKeyField(ctx, s.userSchema, "").OnComplete(func(pk async.Result[string]) {
		if pk.Err != nil {
			out.Fail(pk.Err)
			return
		}
		// the credentials must name the user, otherwise a response could
		// never be attributed to a session
		if err := core.CheckArgument(pk.Value, credentials[pk.Value]); err != nil {
			out.Fail(err)
			return
		}
		query := NewQuery()
		for key, value := range credentials {
			query = query.WithFilter(key, value)
		}
		f := s.do(ctx, core.SubdomainAPI, core.OperationRead, http.MethodGet, s.userSchema, loginEndpoint, query.Encode(),
			nil, request.AuthSession, nil)
		f.OnComplete(func(r async.Result[[]byte]) {
			if r.Err != nil {
				out.Fail(r.Err)
				return
			}
			doc, err := decodeDocument(r.Value)
			if err != nil {
				out.Fail(err)
				return
			}
			s.recordLogin(pk.Value, credentials[pk.Value])
			out.Complete(doc)
		})
	})
	return out, nil
}

func (s *SessionClient) recordLogin(usernameField, username string) {
	s.mu.Lock()
	s.username = username
	s.usernameField = usernameField
	s.loggedInAt = s.now()
	s.mu.Unlock()
	logger.Default().WithField("identity", username).Debug("logged in")
}

// IsLoggedIn reports whether a login happened less than thirty minutes ago.
// This is a local heuristic only, not a server-verified session check.
func (s *SessionClient) IsLoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username != "" && s.now().Sub(s.loggedInAt) < sessionValidity
}

// LoggedInUsername returns the username of the current session, or the
// empty string if the session is not logged in.
func (s *SessionClient) LoggedInUsername() string {
	if !s.IsLoggedIn() {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

// Logout logs the current user out. If no user ever logged in, the returned
// future resolves immediately without a request.
//
// Local session state and the cookie jar are replaced only after the logout
// request completed, so that the request itself still carries the session
// cookie.
func (s *SessionClient) Logout(ctx context.Context) (*async.Future[struct{}], error) {
	s.mu.Lock()
	username := s.username
	usernameField := s.usernameField
	s.mu.Unlock()

	if username == "" {
		return async.Completed(struct{}{}), nil
	}

	ctx, _ = logger.ContextWithLoggerIdentity(ctx, username)
	query := NewQuery().WithFilter(usernameField, username)
	out := async.NewFuture[struct{}]()
	f := s.do(ctx, core.SubdomainAPI, core.OperationRead, http.MethodGet, s.userSchema, logoutEndpoint, query.Encode(),
		nil, request.AuthSession, nil)
	f.OnComplete(func(r async.Result[[]byte]) {
		if r.Err != nil {
			out.Fail(r.Err)
			return
		}
		s.mu.Lock()
		s.username = ""
		s.usernameField = ""
		s.loggedInAt = time.Time{}
		s.mu.Unlock()
		s.executor.ResetJar()
		out.Complete(struct{}{})
	})
	return out, nil
}

// ForgotPassword asks the backend to start a password reset for the given
// username.
func (s *SessionClient) ForgotPassword(ctx context.Context, username string) (*async.Future[struct{}], error) {
	if err := core.CheckArgument("username", username); err != nil {
		return nil, err
	}
	query := NewQuery().WithFilter("username", username)
	return ack(s.do(ctx, core.SubdomainAPI, core.OperationRead, http.MethodGet, s.userSchema, forgotPasswordEndpoint, query.Encode(),
		nil, request.AuthSigned, nil)), nil
}
