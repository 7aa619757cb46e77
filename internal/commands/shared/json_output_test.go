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
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/tombee/crewctl/pkg/errors"
)

func TestEmitJSON_Indented(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EmitJSON(&buf, map[string]any{"sentiment": "positive"}))
	assert.Equal(t, "{\n  \"sentiment\": \"positive\"\n}\n", buf.String())
}

func TestEmitJSONError(t *testing.T) {
	var buf bytes.Buffer
	err := &pkgerrors.AuthError{Reason: "no API token", Hint: "Run 'crewctl auth login'"}
	require.NoError(t, EmitJSONError(&buf, err))

	var got JSONError
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.False(t, got.Success)
	assert.Equal(t, ExitAuth, got.Code)
	assert.Equal(t, "authentication error: no API token", got.Message)
	assert.Equal(t, "Run 'crewctl auth login'", got.Suggestion)
}
