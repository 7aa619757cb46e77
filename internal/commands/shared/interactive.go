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

package shared

import (
	"os"

	"golang.org/x/term"
)

// IsNonInteractive detects if the current execution context is non-interactive.
// This function checks multiple indicators in priority order:
//
// 1. CREWCTL_NON_INTERACTIVE=true environment variable
// 2. CI environment detection (CI, GITHUB_ACTIONS, GITLAB_CI, CIRCLECI, JENKINS_HOME)
// 3. stdin is not a TTY (lowest priority)
//
// Returns true if any non-interactive indicator is detected.
func IsNonInteractive() bool {
	if os.Getenv("CREWCTL_NON_INTERACTIVE") == "true" {
		return true
	}

	if isCIEnvironment() {
		return true
	}

	if !isTerminal() {
		return true
	}

	return false
}

// isCIEnvironment checks for common CI environment variables.
func isCIEnvironment() bool {
	ciVars := []string{
		"CI",             // Generic CI indicator
		"GITHUB_ACTIONS", // GitHub Actions
		"GITLAB_CI",      // GitLab CI
		"CIRCLECI",       // CircleCI
		"JENKINS_HOME",   // Jenkins
	}

	for _, envVar := range ciVars {
		value := os.Getenv(envVar)
		if value == "true" || value == "1" {
			return true
		}
		// JENKINS_HOME is set to a path, just check if it exists
		if envVar == "JENKINS_HOME" && value != "" {
			return true
		}
	}

	return false
}

// isTerminal checks if stdin is connected to a terminal.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
