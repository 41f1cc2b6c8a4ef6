package cmd

import (
	"io"
	"os"
	"testing"

	"github.com/genclm/genctl/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSilentFlag(t *testing.T) {
	args := []string{"genctl", "-silent", "-c", "run.yaml"}
	assert.True(t, normalizeSilentFlag(args))
	assert.Equal(t, "--silent", args[1], "single-dash spelling must be rewritten for the flag parser")

	args = []string{"genctl", "--silent"}
	assert.True(t, normalizeSilentFlag(args))
	assert.Equal(t, "--silent", args[1])

	args = []string{"genctl", "-c", "run.yaml"}
	assert.False(t, normalizeSilentFlag(args))
	assert.Equal(t, []string{"genctl", "-c", "run.yaml"}, args)
}

func TestValidationErrorsPrintToStderr(t *testing.T) {
	capture := func(fd **os.File) (*os.File, func() string) {
		r, w, err := os.Pipe()
		require.NoError(t, err)
		old := *fd
		*fd = w
		return w, func() string {
			w.Close()
			*fd = old
			out, _ := io.ReadAll(r)
			return string(out)
		}
	}

	_, readStderr := capture(&os.Stderr)
	_, readStdout := capture(&os.Stdout)

	verr := &config.ValidationError{Errors: []error{
		&config.ConfigError{Field: "nodes", Value: 0, Reason: "must be positive"},
		&config.ConfigError{Field: "data_dir", Reason: "missing required field: data_dir"},
	}}
	printValidationError(verr)

	stderr := readStderr()
	stdout := readStdout()

	assert.Contains(t, stderr, "Config validation failed with 2 error(s):")
	assert.Contains(t, stderr, "must be positive")
	assert.Contains(t, stderr, "missing required field: data_dir")
	assert.Empty(t, stdout, "validation output leaked to stdout")
}
