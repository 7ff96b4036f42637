// Package smtp implements the SMTP intake listener: every accepted message
// is handed to an intake handler and becomes a ticket.
package smtp

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strings"
)

// ErrAuthFailed is returned for credentials that do not match.
var ErrAuthFailed = errors.New("authentication failed")

// Authenticator checks SMTP AUTH credentials against one configured
// account.
type Authenticator struct {
	username string
	password string
}

// NewAuthenticator creates an Authenticator. Authentication is disabled
// unless both username and password are set.
func NewAuthenticator(username, password string) *Authenticator {
	return &Authenticator{username: username, password: password}
}

// Enabled reports whether clients must authenticate.
func (a *Authenticator) Enabled() bool {
	return a.username != "" && a.password != ""
}

// Verify compares credentials in constant time.
func (a *Authenticator) Verify(username, password string) error {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) == 1
	if !userOK || !passOK {
		return ErrAuthFailed
	}
	return nil
}

// VerifyPlain checks an AUTH PLAIN response: base64 of
// "authzid\x00authcid\x00password". The authorization identity is ignored.
func (a *Authenticator) VerifyPlain(encoded string) error {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return errors.New("invalid base64 encoding")
	}
	parts := strings.SplitN(string(decoded), "\x00", 3)
	if len(parts) != 3 {
		return errors.New("invalid AUTH PLAIN format")
	}
	return a.Verify(parts[1], parts[2])
}

// VerifyLogin checks the base64 username and password collected by the
// AUTH LOGIN exchange.
func (a *Authenticator) VerifyLogin(encodedUser, encodedPass string) error {
	user, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encodedUser))
	if err != nil {
		return errors.New("invalid base64 username")
	}
	pass, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encodedPass))
	if err != nil {
		return errors.New("invalid base64 password")
	}
	return a.Verify(string(user), string(pass))
}
