package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finwiz/pkg/errors"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	reg := NewRegistry()

	echo := New("echo", "echoes the input", func(ctx context.Context, args map[string]interface{}) (string, error) {
		return StringArg(args, "text")
	})
	reg.Register(echo)

	got, err := reg.Get("echo")
	require.NoError(t, err)

	out, err := got.Execute(context.Background(), map[string]interface{}{"text": "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestRegistryReplaceOnReRegister(t *testing.T) {
	reg := NewRegistry()
	reg.Register(New("dup", "", func(ctx context.Context, args map[string]interface{}) (string, error) { return "first", nil }))
	reg.Register(New("dup", "", func(ctx context.Context, args map[string]interface{}) (string, error) { return "second", nil }))

	tool, err := reg.Get("dup")
	require.NoError(t, err)
	out, err := tool.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "second", out)
}

func TestRegistryUnknownTool(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Get("missing")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestRegistryNamesSorted(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		reg.Register(New(name, "", func(ctx context.Context, args map[string]interface{}) (string, error) {
			return "", nil
		}))
	}

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, reg.Names())
}

func TestStringArg(t *testing.T) {
	_, err := StringArg(map[string]interface{}{}, "ticker")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = StringArg(map[string]interface{}{"ticker": 42}, "ticker")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	got, err := StringArg(map[string]interface{}{"ticker": "AAPL"}, "ticker")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", got)
}
