// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package client

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/relabs-tech/cirrus/core"
	"github.com/relabs-tech/cirrus/core/async"
	"github.com/relabs-tech/cirrus/core/request"
)

// fixed sub-endpoints of the user schema for third-party login
const (
	createUserWithFacebookEndpoint = "createUserWithFacebook"
	createUserWithTwitterEndpoint  = "createUserWithTwitter"
	facebookLoginEndpoint          = "facebookLogin"
	twitterLoginEndpoint           = "twitterLogin"
	linkUserWithFacebookEndpoint   = "linkUserWithFacebook"
	linkUserWithTwitterEndpoint    = "linkUserWithTwitter"
	facebookUserInfoEndpoint       = "getFacebookUserInfo"
	twitterUserInfoEndpoint        = "getTwitterUserInfo"
	postFacebookMessageEndpoint    = "postFacebookMessage"
	postTwitterMessageEndpoint     = "postTwitterMessage"
)

// provider query parameter names
const (
	paramFacebookToken      = "fb_at"
	paramTwitterToken       = "tw_tk"
	paramTwitterTokenSecret = "tw_ts"
	paramMessage            = "message"
)

// provider info keys in login responses
const (
	providerKeyFacebook = "fb"
	providerKeyTwitter  = "tw"
)

// SocialLogin is the outcome of a third-party login: the resolved username
// and the nested provider info object from the response.
type SocialLogin struct {
	Username string
	Provider Document
}

// CreateUserWithFacebook creates a new user from a Facebook access token.
func (s *SessionClient) CreateUserWithFacebook(ctx context.Context, accessToken string) (*async.Future[Document], error) {
	if err := core.CheckArgument("accessToken", accessToken); err != nil {
		return nil, err
	}
	return s.socialGet(ctx, createUserWithFacebookEndpoint,
		NewQuery().WithFilter(paramFacebookToken, accessToken))
}

// CreateUserWithTwitter creates a new user from a Twitter token and secret.
func (s *SessionClient) CreateUserWithTwitter(ctx context.Context, token, tokenSecret string) (*async.Future[Document], error) {
	if err := s.checkTwitterToken(token, tokenSecret); err != nil {
		return nil, err
	}
	return s.socialGet(ctx, createUserWithTwitterEndpoint,
		NewQuery().WithFilter(paramTwitterToken, token).WithFilter(paramTwitterTokenSecret, tokenSecret))
}

// LoginWithFacebook logs a user in with a Facebook access token and
// resolves with the username and the nested provider info.
func (s *SessionClient) LoginWithFacebook(ctx context.Context, accessToken string) (*async.Future[SocialLogin], error) {
	if err := core.CheckArgument("accessToken", accessToken); err != nil {
		return nil, err
	}
	return s.socialLogin(ctx, facebookLoginEndpoint,
		NewQuery().WithFilter(paramFacebookToken, accessToken), providerKeyFacebook), nil
}

// LoginWithTwitter logs a user in with a Twitter token and secret and
// resolves with the username and the nested provider info.
func (s *SessionClient) LoginWithTwitter(ctx context.Context, token, tokenSecret string) (*async.Future[SocialLogin], error) {
	if err := s.checkTwitterToken(token, tokenSecret); err != nil {
		return nil, err
	}
	return s.socialLogin(ctx, twitterLoginEndpoint,
		NewQuery().WithFilter(paramTwitterToken, token).WithFilter(paramTwitterTokenSecret, tokenSecret), providerKeyTwitter), nil
}

// LinkAccountToFacebook links the logged-in user to a Facebook account.
func (s *SessionClient) LinkAccountToFacebook(ctx context.Context, accessToken string) (*async.Future[Document], error) {
	if err := core.CheckArgument("accessToken", accessToken); err != nil {
		return nil, err
	}
	return s.socialGet(ctx, linkUserWithFacebookEndpoint,
		NewQuery().WithFilter(paramFacebookToken, accessToken))
}

// LinkAccountToTwitter links the logged-in user to a Twitter account.
func (s *SessionClient) LinkAccountToTwitter(ctx context.Context, token, tokenSecret string) (*async.Future[Document], error) {
	if err := s.checkTwitterToken(token, tokenSecret); err != nil {
		return nil, err
	}
	return s.socialGet(ctx, linkUserWithTwitterEndpoint,
		NewQuery().WithFilter(paramTwitterToken, token).WithFilter(paramTwitterTokenSecret, tokenSecret))
}

// FacebookUserInfo gets the Facebook profile of the logged-in user.
func (s *SessionClient) FacebookUserInfo(ctx context.Context) (*async.Future[Document], error) {
	return s.socialGet(ctx, facebookUserInfoEndpoint, NewQuery())
}

// TwitterUserInfo gets the Twitter profile of the logged-in user.
func (s *SessionClient) TwitterUserInfo(ctx context.Context) (*async.Future[Document], error) {
	return s.socialGet(ctx, twitterUserInfoEndpoint, NewQuery())
}

// PostToFacebook posts a message to the logged-in user's Facebook wall.
func (s *SessionClient) PostToFacebook(ctx context.Context, message string) (*async.Future[Document], error) {
	if err := core.CheckArgument("message", message); err != nil {
		return nil, err
	}
	return s.socialGet(ctx, postFacebookMessageEndpoint, NewQuery().WithFilter(paramMessage, message))
}

// PostToTwitter posts a message to the logged-in user's Twitter timeline.
func (s *SessionClient) PostToTwitter(ctx context.Context, message string) (*async.Future[Document], error) {
	if err := core.CheckArgument("message", message); err != nil {
		return nil, err
	}
	return s.socialGet(ctx, postTwitterMessageEndpoint, NewQuery().WithFilter(paramMessage, message))
}

func (s *SessionClient) checkTwitterToken(token, tokenSecret string) error {
	if err := core.CheckArgument("token", token); err != nil {
		return err
	}
	return core.CheckArgument("tokenSecret", tokenSecret)
}

func (s *SessionClient) socialGet(ctx context.Context, endpoint string, query Query) (*async.Future[Document], error) {
	f := s.do(ctx, core.SubdomainAPI, core.OperationRead, http.MethodGet, s.userSchema, endpoint, query.Encode(),
		nil, request.AuthSession, nil)
	return async.Then(f, decodeDocument), nil
}

// socialLogin performs a login-variant endpoint: it resolves the user
// schema's identity column first so that the session can record the
// username, then parses username and provider info from the response.
func (s *SessionClient) socialLogin(ctx context.Context, endpoint string, query Query, providerKey string) *async.Future[SocialLogin] {
	out := async.NewFuture[SocialLogin]()
	s.schemas.PrimaryKeyField(ctx, s.userSchema, "").OnComplete(func(pk async.Result[string]) {
		if pk.Err != nil {
			out.Fail(pk.Err)
			return
		}
		f := s.do(ctx, core.SubdomainAPI, core.OperationRead, http.MethodGet, s.userSchema, endpoint, query.Encode(),
			nil, request.AuthSession, nil)
		f.OnComplete(func(r async.Result[[]byte]) {
			if r.Err != nil {
				out.Fail(r.Err)
				return
			}
			login := SocialLogin{
				Username: gjson.GetBytes(r.Value, "username").String(),
			}
			if provider := gjson.GetBytes(r.Value, providerKey); provider.IsObject() {
				if err := json.Unmarshal([]byte(provider.Raw), &login.Provider); err != nil {
					out.Fail(err)
					return
				}
			}
			s.recordLogin(pk.Value, login.Username)
			out.Complete(login)
		})
	})
	return out
}
