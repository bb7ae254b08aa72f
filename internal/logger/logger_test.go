package logger_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chanomhub/gamedl/internal/logger"
)

func TestSetOutputPrefixesLevels(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.Close()

	logger.Infof("started %s", "d1")
	logger.Warnf("slow")
	logger.Errorf("failed: %v", "disk full")
	logger.Debugf("line")

	out := buf.String()
	assert.Contains(t, out, "[INFO] started d1")
	assert.Contains(t, out, "[WARNING] slow")
	assert.Contains(t, out, "[ERROR] failed: disk full")
	assert.Contains(t, out, "[DEBUG] line")
}

func TestInitLoggingWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "gamedl.log")
	require.NoError(t, logger.InitLogging(true, path))

	logger.Infof("hello")
	logger.Close()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(b), "[INFO] hello"))
}

func TestDisabledLoggingIsSilent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gamedl.log")
	require.NoError(t, logger.InitLogging(false, path))
	defer logger.Close()

	logger.Infof("nothing")

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
