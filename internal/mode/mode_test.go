package mode

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		intent   Intent
		wantMode Mode
		wantRoot string
	}{
		{"neither", Intent{}, Passthrough, os.TempDir()},
		{"neither with root", Intent{Root: "/data"}, Passthrough, "/data"},
		{"store explicit", Intent{Store: true, Root: "/data"}, Record, "/data"},
		{"mock explicit", Intent{Mock: true, Root: "/data"}, Replay, "/data"},
		{"store env", Intent{Store: true, EnvRoot: "/env"}, Record, "/env"},
		{"explicit wins over env", Intent{Mock: true, Root: "/data", EnvRoot: "/env"}, Replay, "/data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Resolve(tt.intent)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMode, res.Mode)
			assert.Equal(t, tt.wantRoot, res.Root)
		})
	}
}

func TestResolveMutualExclusion(t *testing.T) {
	// Fails regardless of the storage location
	for _, in := range []Intent{
		{Store: true, Mock: true},
		{Store: true, Mock: true, Root: "/data"},
		{Store: true, Mock: true, EnvRoot: "/env"},
	} {
		_, err := Resolve(in)
		require.Error(t, err)
		assert.True(t, IsConfigurationError(err))
		assert.Contains(t, err.Error(), "mutually exclusive")
	}
}

func TestResolveMissingRoot(t *testing.T) {
	for _, in := range []Intent{{Store: true}, {Mock: true}} {
		_, err := Resolve(in)
		require.Error(t, err)
		assert.True(t, IsConfigurationError(err))
		assert.Contains(t, err.Error(), "PMSM_DATA_DIR")
	}
}

func TestIsConfigurationErrorWrapped(t *testing.T) {
	err := fmt.Errorf("fixture: %w", &ConfigurationError{Reason: "x"})
	assert.True(t, IsConfigurationError(err))
	assert.False(t, IsConfigurationError(fmt.Errorf("other")))
}

func TestStringAndParse(t *testing.T) {
	tests := []struct {
		mode Mode
		s    string
	}{
		{Passthrough, "Normal"},
		{Record, "Store Data"},
		{Replay, "Mock"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.s, tt.mode.String())
		parsed, err := Parse(tt.s)
		require.NoError(t, err)
		assert.Equal(t, tt.mode, parsed)
	}

	_, err := Parse("Sometimes")
	assert.Error(t, err)
	assert.Equal(t, "Mode(7)", Mode(7).String())
}

func TestPublishAndActive(t *testing.T) {
	Publish(Replay, t.Setenv)
	assert.Equal(t, "Mock", os.Getenv(EnvVar))
	assert.Equal(t, Replay, Active())

	m, ok := Published()
	assert.True(t, ok)
	assert.Equal(t, Replay, m)

	t.Setenv(EnvVar, "garbage")
	assert.Equal(t, Passthrough, Active())
	_, ok = Published()
	assert.False(t, ok)
}

func TestContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := NewContext(context.Background(), Record)
	m, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, Record, m)
}
