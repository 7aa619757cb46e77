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

// Package credentials resolves the bearer token sent to the remote service.
//
// A token given explicitly (flag, environment or config file) always wins.
// Otherwise the OS keychain is consulted under the "crewctl" service, keyed
// by service base URL so different deployments keep separate tokens.
//
// Tokens are opaque to the service contract. When a token happens to be a
// JWT, Inspect decodes its claims (without verifying the signature) so the
// CLI can warn about expiry before a request fails with 401.
package credentials
