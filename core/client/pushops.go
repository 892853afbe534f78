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

	"github.com/goccy/go-json"
	"github.com/tidwall/sjson"

	"github.com/relabs-tech/cirrus/core"
	"github.com/relabs-tech/cirrus/core/async"
	"github.com/relabs-tech/cirrus/core/push"
	"github.com/relabs-tech/cirrus/core/request"
)

// endpoints of the push subdomain
const (
	registerDeviceTokenEndpoint = "register_device_token_universal"
	pushBroadcastEndpoint       = "push_universal_broadcast"
)

// body keys of the broadcast endpoint
const (
	pushPayloadKey = "kvPairs"
	pushUserIDsKey = "userIds"
	pushTokensKey  = "tokens"
)

// RegisterPushToken registers a device token for the given username with
// the push backend.
func (c *Client) RegisterPushToken(ctx context.Context, username string, token push.Token) (*async.Future[struct{}], error) {
	if err := core.CheckArgument("username", username); err != nil {
		return nil, err
	}
	if err := core.CheckArgument("token", token.Value); err != nil {
		return nil, err
	}
	body := Document{
		"userId": username,
		"token": Document{
			"type":  string(token.Platform),
			"token": token.Value,
		},
	}
	return ack(c.do(ctx, core.SubdomainPush, core.OperationCreate, http.MethodPost, registerDeviceTokenEndpoint, "", "",
		nil, request.AuthSigned, body)), nil
}

// RegisterDevice obtains the local device's token from the platform
// adapter and registers it for the given username.
func (c *Client) RegisterDevice(ctx context.Context, username string, source push.TokenSource) (*async.Future[struct{}], error) {
	if source == nil {
		return nil, fmt.Errorf("token source must not be nil")
	}
	token, err := source.Token()
	if err != nil {
		return nil, err
	}
	return c.RegisterPushToken(ctx, username, token)
}

// PushToUsers sends the payload to the devices of the given users.
func (c *Client) PushToUsers(ctx context.Context, payload push.Payload, userIDs []string) (*async.Future[struct{}], error) {
	if len(userIDs) == 0 {
		return nil, fmt.Errorf("userIDs must not be empty")
	}
	body, err := broadcastBody(payload, pushUserIDsKey, userIDs)
	if err != nil {
		return nil, err
	}
	return ack(c.do(ctx, core.SubdomainPush, core.OperationCreate, http.MethodPost, pushBroadcastEndpoint, "", "",
		nil, request.AuthSigned, json.RawMessage(body))), nil
}

// PushToTokens sends the payload to the devices with the given tokens.
func (c *Client) PushToTokens(ctx context.Context, payload push.Payload, tokens []push.Token) (*async.Future[struct{}], error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("tokens must not be empty")
	}
	list := make([]Document, 0, len(tokens))
	for _, t := range tokens {
		list = append(list, Document{"type": string(t.Platform), "token": t.Value})
	}
	body, err := broadcastBody(payload, pushTokensKey, list)
	if err != nil {
		return nil, err
	}
	return ack(c.do(ctx, core.SubdomainPush, core.OperationCreate, http.MethodPost, pushBroadcastEndpoint, "", "",
		nil, request.AuthSigned, json.RawMessage(body))), nil
}

// broadcastBody merges the target list into the notification body under its
// fixed key.
func broadcastBody(payload push.Payload, targetKey string, targets interface{}) ([]byte, error) {
	if payload == nil {
		return nil, fmt.Errorf("payload must not be nil")
	}
	body, err := json.Marshal(Document{pushPayloadKey: payload})
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(body, targetKey, targets)
}
