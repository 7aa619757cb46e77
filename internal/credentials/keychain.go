// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package credentials

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"

	crewerrors "github.com/tombee/crewctl/pkg/errors"
)

// Service is the keychain service name for crewctl entries.
const Service = "crewctl"

var (
	// ErrNotFound indicates no token is stored for the base URL.
	ErrNotFound = errors.New("token not found")

	// ErrUnavailable indicates the keychain cannot be reached (locked,
	// missing Secret Service, headless session).
	ErrUnavailable = errors.New("keychain unavailable")
)

// Source identifies where a resolved token came from.
type Source string

const (
	SourceFlag     Source = "flag"
	SourceEnv      Source = "env"
	SourceConfig   Source = "config"
	SourceKeychain Source = "keychain"
)

// Lookup returns the token stored for baseURL.
func Lookup(baseURL string) (string, error) {
	value, err := keyring.Get(Service, account(baseURL))
	if err != nil {
		return "", wrapKeyringError(err, baseURL)
	}
	return value, nil
}

// Store saves token for baseURL, replacing any existing entry.
func Store(baseURL, token string) error {
	if strings.TrimSpace(token) == "" {
		return &crewerrors.ValidationError{Field: "token", Message: "must not be empty"}
	}
	if err := keyring.Set(Service, account(baseURL), token); err != nil {
		return wrapKeyringError(err, baseURL)
	}
	return nil
}

// Delete removes the token stored for baseURL.
func Delete(baseURL string) error {
	if err := keyring.Delete(Service, account(baseURL)); err != nil {
		return wrapKeyringError(err, baseURL)
	}
	return nil
}

// Resolve returns explicit when non-empty, reporting explicitSource as its
// origin, and otherwise the keychain entry for baseURL. When neither yields
// a token the error is a *errors.AuthError.
func Resolve(explicit string, explicitSource Source, baseURL string) (string, Source, error) {
	if explicit != "" {
		return explicit, explicitSource, nil
	}

	token, err := Lookup(baseURL)
	if err == nil {
		return token, SourceKeychain, nil
	}

	reason := fmt.Sprintf("no API token configured for %s", baseURL)
	if errors.Is(err, ErrUnavailable) {
		reason = fmt.Sprintf("no API token configured for %s and the keychain is unavailable", baseURL)
	}
	return "", "", &crewerrors.AuthError{
		Reason: reason,
		Hint:   "Run 'crewctl auth login', pass --token, or set CREWCTL_TOKEN",
		Cause:  err,
	}
}

// account normalises baseURL into a keychain account name.
func account(baseURL string) string {
	return strings.TrimRight(strings.TrimSpace(baseURL), "/")
}

func wrapKeyringError(err error, baseURL string) error {
	if errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, baseURL)
	}
	if isKeychainUnavailableError(err) {
		return fmt.Errorf("%w: %s", ErrUnavailable, err.Error())
	}
	return fmt.Errorf("keychain error: %w", err)
}

// isKeychainUnavailableError matches platform messages for a locked or
// missing keychain.
func isKeychainUnavailableError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, s := range []string{
		"locked",
		"user interaction is not allowed",
		"no such interface",
		"org.freedesktop.secrets",
		"dbus",
		"not available",
		"cannot autolaunch",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
