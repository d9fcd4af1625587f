package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootVersionFlag(t *testing.T) {
	chdir(t, t.TempDir())

	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "tagscan")
	assert.Contains(t, out, "commit")
}

func TestGetConfigDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg := GetConfig()
	require.NotNil(t, cfg)
	assert.NoError(t, cfg.Validate())
}
