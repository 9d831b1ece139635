package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestBuildConfig_AppliesConfiguredLevel(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg, err := buildConfig(tt.level, false)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Level.Level())
		})
	}
}

func TestBuildConfig_RejectsUnknownLevel(t *testing.T) {
	_, err := buildConfig("loud", false)
	assert.Error(t, err)
}

func TestBuildConfig_EmptyLevelKeepsEncoderDefault(t *testing.T) {
	cfg, err := buildConfig("", true)
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, cfg.Level.Level())

	cfg, err = buildConfig("", false)
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, cfg.Level.Level())
}
