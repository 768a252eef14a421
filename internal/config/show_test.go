package config

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderEffective_Defaults(t *testing.T) {
	r := &Resolved{Config: *DefaultConfig(), Path: "/etc/apsdm/config.toml"}

	var buf bytes.Buffer
	require.NoError(t, RenderEffective(r, &buf))

	output := buf.String()
	assert.Contains(t, output, "defaults in use")
	assert.Contains(t, output, "[auth]")
	assert.Contains(t, output, "[api]")
	assert.Contains(t, output, "[upload]")
	assert.Contains(t, output, "[logging]")
	assert.NotContains(t, output, "[target]")
	assert.Contains(t, output, `"data:read", "data:write"`)
	assert.Contains(t, output, `orphan_policy      = "keep"`)
}

func TestRenderEffective_SecretMasked(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ClientID = "visible-id"
	cfg.ClientSecret = "super-secret-value"
	cfg.ProjectID = "b.project"

	r := &Resolved{Config: *cfg, Path: "/x/config.toml", FileExisted: true}

	var buf bytes.Buffer
	require.NoError(t, RenderEffective(r, &buf))

	output := buf.String()
	assert.NotContains(t, output, "super-secret-value")
	assert.Contains(t, output, secretMask)
	assert.Contains(t, output, "visible-id")
	assert.Contains(t, output, "[target]")
	assert.Contains(t, output, `project_id = "b.project"`)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestRenderEffective_WriteError(t *testing.T) {
	r := &Resolved{Config: *DefaultConfig()}

	err := RenderEffective(r, failingWriter{})
	assert.EqualError(t, err, "disk full")
}
