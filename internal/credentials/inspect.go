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
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo describes what can be learnt from a token without contacting
// the service.
type TokenInfo struct {
	// IsJWT is false for opaque tokens; the other fields are then empty.
	IsJWT bool `json:"is_jwt"`

	Subject   string     `json:"subject,omitempty"`
	Issuer    string     `json:"issuer,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the token carries an expiry that is before now.
func (i TokenInfo) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && now.After(*i.ExpiresAt)
}

// Inspect decodes a JWT's registered claims without verifying the signature.
// Anything that does not parse as a JWT is reported as opaque.
func Inspect(token string) TokenInfo {
	if strings.Count(token, ".") != 2 {
		return TokenInfo{}
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenInfo{}
	}

	info := TokenInfo{IsJWT: true}
	info.Subject, _ = claims.GetSubject()
	info.Issuer, _ = claims.GetIssuer()
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time.UTC()
		info.ExpiresAt = &t
	}
	return info
}
