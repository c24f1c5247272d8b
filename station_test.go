package station

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoggerDefaultsWhenUnset(t *testing.T) {
	require.NotNil(t, Logger())
}

func TestSetLoggerIsObservedByLogger(t *testing.T) {
	var buf bytes.Buffer
	custom := slog.New(slog.NewTextHandler(&buf, nil))
	SetLogger(custom)
	defer SetLogger(slog.Default())

	Logger().Info("hello from test")
	require.Contains(t, buf.String(), "hello from test")
}
