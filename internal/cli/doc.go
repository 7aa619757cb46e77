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

/*
Package cli provides the root command for crewctl.

This package creates the main Cobra command and handles global concerns like
version information, persistent flags, and error handling. Individual commands
are implemented in the internal/commands subpackages.

# Command Tree

The CLI is organized as:

	crewctl
	├── analyze            Analyze a data payload
	├── recommend          Get a recommendation for a user
	├── sentiment          Analyze the sentiment of a text
	├── generate-content   Generate content on a topic
	├── operations         List operations and their state
	├── serve              Run the local JSON API
	├── auth               Manage the API token
	├── config             Show, create or validate configuration
	├── completion         Generate shell completion scripts
	├── version            Show version
	└── help               Show help

# Global Flags

	--verbose, -v   Debug logging
	--quiet, -q     Errors only
	--json          Machine-readable output
	--config        Config file path
	--token         API token
	--base-url      Service base URL

# Exit Codes

	0  success
	1  operation failed
	2  usage error or unknown operation
	3  configuration error
	4  no API token
*/
package cli
