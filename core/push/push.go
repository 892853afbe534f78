/*
Package push holds the value types for push notification registration and
delivery.

The per-platform client duplication of older SDK generations collapses into
the single TokenSource capability: a platform adapter only has to say which
kind of token it holds.
*/
package push

import "fmt"

// Platform identifies the mobile platform that issued a device token.
type Platform string

// the supported platforms
const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
)

// Token is an opaque platform-issued identifier used to route notifications
// to a specific device. Tokens are immutable value objects.
type Token struct {
	Platform Platform
	Value    string
}

// NewToken creates a token, validating platform and value.
func NewToken(platform Platform, value string) (Token, error) {
	switch platform {
	case PlatformAndroid, PlatformIOS:
	default:
		return Token{}, fmt.Errorf("%s is not a valid platform", platform)
	}
	if value == "" {
		return Token{}, fmt.Errorf("token value must not be empty")
	}
	return Token{Platform: platform, Value: value}, nil
}

// notification keys with named accessors
const (
	keyBadge = "badge"
	keySound = "sound"
	keyAlert = "alert"
)

// Payload is a push notification body: named accessors for the well-known
// keys, otherwise an open key/value bag.
type Payload map[string]interface{}

// NewPayload returns an empty payload.
func NewPayload() Payload {
	return Payload{}
}

// With returns a copy of the payload with an arbitrary key set.
func (p Payload) With(key string, value interface{}) Payload {
	// we want a true copy to avoid side effects
	q := Payload{}
	for k, v := range p {
		q[k] = v
	}
	q[key] = value
	return q
}

// WithBadge returns a copy of the payload with the badge count set.
func (p Payload) WithBadge(count int) Payload {
	return p.With(keyBadge, count)
}

// WithSound returns a copy of the payload with the sound filename set.
func (p Payload) WithSound(filename string) Payload {
	return p.With(keySound, filename)
}

// WithAlert returns a copy of the payload with the alert text set.
func (p Payload) WithAlert(text string) Payload {
	return p.With(keyAlert, text)
}

// Badge returns the badge count, if set.
func (p Payload) Badge() (int, bool) {
	switch v := p[keyBadge].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	}
	return 0, false
}

// Sound returns the sound filename, if set.
func (p Payload) Sound() (string, bool) {
	s, ok := p[keySound].(string)
	return s, ok
}

// Alert returns the alert text, if set.
func (p Payload) Alert() (string, bool) {
	s, ok := p[keyAlert].(string)
	return s, ok
}

// TokenSource yields the local device's platform token. Each platform
// adapter implements this with its own plumbing (registration id on
// Android, device token on iOS); the client core does not care which.
type TokenSource interface {
	Token() (Token, error)
}
