package operation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	crewerrors "github.com/tombee/crewctl/pkg/errors"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	tests := []struct {
		name    string
		path    string
		fields  []string
		message string
	}{
		{Analyze, "/analyze", []string{"data"}, "Error analyzing data"},
		{Recommend, "/recommend", []string{"user"}, "Error getting recommendation"},
		{Sentiment, "/sentiment", []string{"text"}, "Error analyzing sentiment"},
		{GenerateContent, "/generate-content", []string{"topic", "content_type"}, "Error generating content"},
	}

	require.Equal(t, []string{Analyze, Recommend, Sentiment, GenerateContent}, r.Names())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := r.Resolve(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.path, def.Path)
			assert.Equal(t, tt.fields, def.Fields)
			assert.Equal(t, tt.message, def.ErrorMessage)
			assert.NotEmpty(t, def.Description)
		})
	}
}

func TestRegistry_ResolveUnknown(t *testing.T) {
	r := DefaultRegistry()

	def, err := r.Resolve("translate")
	assert.Nil(t, def)
	require.ErrorIs(t, err, ErrUnknownOperation)

	var unknown *UnknownOperationError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "translate", unknown.Name)
	assert.Equal(t, `unknown operation "translate"`, err.Error())
	assert.Equal(t, "Available operations: analyze, recommend, sentiment, generate-content", crewerrors.Suggestion(err))
}

func TestRegistry_Payloads(t *testing.T) {
	r := DefaultRegistry()

	tests := []struct {
		name  string
		input Input
		want  map[string]any
	}{
		{Analyze, Input{"data": "1,2,3"}, map[string]any{"data": "1,2,3"}},
		{Recommend, Input{"user": "alice"}, map[string]any{"user": "alice"}},
		{Sentiment, Input{"text": "I love this"}, map[string]any{"text": "I love this"}},
		{GenerateContent, Input{"topic": "space", "content_type": "blog"}, map[string]any{"topic": "space", "content_type": "blog"}},
		{GenerateContent, Input{"topic": "space"}, map[string]any{"topic": "space", "content_type": ""}},
		{Sentiment, Input{"text": "x", "extra": "ignored"}, map[string]any{"text": "x"}},
		{Analyze, nil, map[string]any{"data": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := r.Resolve(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, def.BuildPayload(tt.input))
		})
	}
}

func TestNewRegistry_CustomPayload(t *testing.T) {
	r := NewRegistry(Definition{
		Name:   "echo",
		Path:   "/echo",
		Fields: []string{"msg"},
		Payload: func(in Input) map[string]any {
			return map[string]any{"message": in["msg"], "version": 2}
		},
	})

	def, err := r.Resolve("echo")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"message": "hi", "version": 2}, def.BuildPayload(Input{"msg": "hi"}))
	assert.True(t, def.HasField("msg"))
	assert.False(t, def.HasField("message"))
}

func TestNewRegistry_Panics(t *testing.T) {
	assert.Panics(t, func() {
		NewRegistry(Definition{Name: "a"}, Definition{Name: "a"})
	})
	assert.Panics(t, func() {
		NewRegistry(Definition{Path: "/nameless"})
	})
}

func TestRegistry_DefinitionsAreCopies(t *testing.T) {
	fields := []string{"data"}
	r := NewRegistry(Definition{Name: "x", Path: "/x", Fields: fields})
	fields[0] = "mutated"

	def, err := r.Resolve("x")
	require.NoError(t, err)
	assert.Equal(t, []string{"data"}, def.Fields)
	assert.Len(t, r.Definitions(), 1)
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusIdle.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.True(t, StatusSucceeded.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
}

func TestValidateField(t *testing.T) {
	def, err := DefaultRegistry().Resolve(GenerateContent)
	require.NoError(t, err)

	assert.NoError(t, ValidateField(def, "topic"))

	err = ValidateField(def, "text")
	var verr *crewerrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "text", verr.Field)
}
