package domain

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodedArgs(t *testing.T, raw string) Args {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return Args(out)
}

func TestArgs_Accessors(t *testing.T) {
	args := decodedArgs(t, `{
		"url": "https://example.com",
		"full_page": true,
		"per_page": 30,
		"labels": ["bug", "help wanted"],
		"files": [{"path": "a.txt", "content": "hello"}]
	}`)

	assert.Equal(t, "https://example.com", args.String("url"))
	assert.True(t, args.Bool("full_page"))
	assert.Equal(t, 30, args.Int("per_page"))
	assert.Equal(t, []string{"bug", "help wanted"}, args.StringSlice("labels"))

	files := args.ObjectSlice("files")
	require.Len(t, files, 1)
	assert.Equal(t, "a.txt", files[0]["path"])
}

func TestArgs_MissingAndWrongTypes(t *testing.T) {
	args := decodedArgs(t, `{"count": "not a number", "tags": "not a list"}`)

	assert.Empty(t, args.String("absent"))
	assert.False(t, args.Bool("absent"))
	assert.Zero(t, args.Int("count"))
	assert.Nil(t, args.StringSlice("tags"))
	assert.Nil(t, args.ObjectSlice("absent"))
}

func TestToolDescriptor_Validate(t *testing.T) {
	valid := ToolDescriptor{
		Name:        "echo",
		Description: "echoes text",
		Schema:      map[string]any{"type": "object"},
		Handler: func(ctx context.Context, args Args) (ToolOutput, error) {
			return ToolOutput{Data: args.String("text")}, nil
		},
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*ToolDescriptor)
	}{
		{name: "empty name", mutate: func(d *ToolDescriptor) { d.Name = "" }},
		{name: "nil handler", mutate: func(d *ToolDescriptor) { d.Handler = nil }},
		{name: "empty schema", mutate: func(d *ToolDescriptor) { d.Schema = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := valid
			tt.mutate(&desc)
			err := desc.Validate()
			require.Error(t, err)
			assert.Equal(t, CodeInvalidParams, CodeOf(err))
		})
	}
}

func TestState_RecordDispatch(t *testing.T) {
	state := NewState()
	before := state.LastActivity()

	assert.Equal(t, uint64(1), state.RecordDispatch())
	assert.Equal(t, uint64(2), state.RecordDispatch())
	assert.Equal(t, uint64(2), state.Requests())
	assert.False(t, state.LastActivity().Before(before))
}
