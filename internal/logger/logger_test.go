package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "defaults", cfg: Config{}},
		{name: "console", cfg: Config{Encoding: "console"}},
		{name: "bad encoding", cfg: Config{Encoding: "xml"}, wantErr: "encoding"},
		{name: "file without path", cfg: Config{EnableWriteToFile: true, MaxSize: 1}, wantErr: "file_path"},
		{name: "file without size", cfg: Config{EnableWriteToFile: true, FilePath: "x.log"}, wantErr: "max_size"},
		{name: "negative backups", cfg: Config{EnableWriteToFile: true, FilePath: "x.log", MaxSize: 1, MaxBackups: -1}, wantErr: "max_backups"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestNew_JSONOutput(t *testing.T) {
	t.Setenv(EnvLogLevel, "info")

	var buf bytes.Buffer
	l, err := newLogger(Config{}, false, &buf)
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("issued")
	require.NoError(t, l.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "issued", entry["msg"])
	assert.Equal(t, "info", entry["level"])
}

func TestNew_InvalidEnv(t *testing.T) {
	t.Setenv(EnvLogLevel, "loud")
	_, err := New(Config{}, true)
	assert.ErrorContains(t, err, "LOG_LEVEL")
}

func TestNew_FileSink(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	path := filepath.Join(t.TempDir(), "flakeid.log")

	var buf bytes.Buffer
	l, err := newLogger(Config{
		EnableWriteToFile: true,
		FilePath:          path,
		MaxSize:           1,
	}, true, &buf)
	require.NoError(t, err)

	l.Info("to file")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
	assert.Contains(t, buf.String(), "to file")
}

func TestDevMode(t *testing.T) {
	t.Setenv(EnvStage, "PROD")
	assert.False(t, DevMode())
	t.Setenv(EnvStage, "staging")
	assert.True(t, DevMode())
}
