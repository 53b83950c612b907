package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMode(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name     string
		env      map[string]string
		args     []string
		wantMode string
		wantRoot string
	}{
		{
			name:     "default",
			wantMode: "Normal",
			wantRoot: os.TempDir(),
		},
		{
			name:     "store flag",
			args:     []string{"--store", "--data-dir", root},
			wantMode: "Store Data",
			wantRoot: root,
		},
		{
			name:     "mock from environment",
			env:      map[string]string{"PMSM_MOCK_DB_DATA": "true", "PMSM_DATA_DIR": root},
			wantMode: "Mock",
			wantRoot: root,
		},
		{
			name:     "flag overrides environment",
			env:      map[string]string{"PMSM_MOCK_DB_DATA": "true", "PMSM_DATA_DIR": root},
			args:     []string{"--mock=false"},
			wantMode: "Normal",
			wantRoot: root,
		},
		{
			name:     "explicit root beats environment root",
			env:      map[string]string{"PMSM_STORE_DB_DATA": "true", "PMSM_DATA_DIR": "/elsewhere"},
			args:     []string{"--data-dir", root},
			wantMode: "Store Data",
			wantRoot: root,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearModeEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			stdout, stderr, code := execute(t, append([]string{"mode"}, tt.args...)...)
			require.Equal(t, ExitSuccess, code, stderr)
			assert.Equal(t, "PMSM_MODE="+tt.wantMode+"\nroot: "+tt.wantRoot+"\n", stdout)
		})
	}
}

func TestMode_Conflicts(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		args    []string
		wantErr string
	}{
		{
			name:    "store and mock",
			args:    []string{"--store", "--mock", "--data-dir", "/tmp/db"},
			wantErr: "mutually exclusive",
		},
		{
			name:    "store and mock across sources",
			env:     map[string]string{"PMSM_STORE_DB_DATA": "true"},
			args:    []string{"--mock", "--data-dir", "/tmp/db"},
			wantErr: "mutually exclusive",
		},
		{
			name:    "record without root",
			args:    []string{"--store"},
			wantErr: "snapshot directory is required",
		},
		{
			name:    "malformed environment",
			env:     map[string]string{"PMSM_STORE_DB_DATA": "maybe"},
			wantErr: "failed to read environment",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearModeEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, stderr, code := execute(t, append([]string{"mode"}, tt.args...)...)
			assert.Equal(t, ExitCommandError, code)
			assert.Contains(t, stderr, tt.wantErr)
		})
	}
}

func TestPath(t *testing.T) {
	clearModeEnv(t)
	root := t.TempDir()

	stdout, stderr, code := execute(t, "path", "internal/report", "report_test", "TestMonthly/empty month",
		"--data-dir", root)
	require.Equal(t, ExitSuccess, code, stderr)

	want := filepath.Join(root, "internal/report", "report_test", "TestMonthly_empty_month.db")
	assert.Equal(t, want+"\n", stdout)
}

func TestPath_UsesEnvironmentRoot(t *testing.T) {
	clearModeEnv(t)
	root := t.TempDir()
	t.Setenv("PMSM_DATA_DIR", root)
	t.Setenv("PMSM_MOCK_DB_DATA", "1")

	stdout, _, code := execute(t, "path", "pkg", "pkg_test", "TestX", "--format", "yaml")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "mode: Mock")
	assert.Contains(t, stdout, "path: "+filepath.Join(root, "pkg", "pkg_test", "TestX.db"))
}

func TestPath_RequiresThreeArgs(t *testing.T) {
	clearModeEnv(t)
	_, _, code := execute(t, "path", "pkg", "pkg_test")
	assert.Equal(t, ExitCommandError, code)
}
