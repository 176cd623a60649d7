package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayhz/portfolio2-sub000/pkg/portfoliocms"
)

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "sqlite://"+filepath.Join(t.TempDir(), "cms.db"))
	t.Setenv("STORAGE_URL", "memory://")
	t.Setenv("CACHE_URL", "none")
	t.Setenv("ENVIRONMENT", "testing")
	t.Setenv("LOG_LEVEL", "error")
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file", ""}, args...))
	require.NoError(t, cmd.Execute(), out.String())
	return out.String()
}

func TestMigrateCommand(t *testing.T) {
	setupEnv(t)

	out := run(t, "migrate")

	assert.Contains(t, out, "sqlite schema is up to date")
}

func TestVersionsCommands(t *testing.T) {
	setupEnv(t)

	assert.Contains(t, run(t, "versions", "create", "--name", "launch"), "Created version 1")
	assert.Contains(t, run(t, "versions", "backup"), "Created backup 2")

	var versions []portfoliocms.Version
	require.NoError(t, json.Unmarshal([]byte(run(t, "versions", "list", "--json")), &versions))
	require.Len(t, versions, 2)
	assert.True(t, versions[0].IsActive)
	assert.Equal(t, "launch", versions[1].Name)

	assert.Contains(t, run(t, "versions", "restore", "1"), "Restored version 1")
	assert.Contains(t, run(t, "versions", "cleanup", "--keep", "1"), "Deleted")
	assert.Contains(t, run(t, "versions", "list"), "ACTIVE")
}

func TestContentExport(t *testing.T) {
	setupEnv(t)

	var content portfoliocms.StructuredContent
	require.NoError(t, json.Unmarshal([]byte(run(t, "content", "export")), &content))
	assert.NotNil(t, content.Footer.Links.Social)
}

func TestInvalidVersionID(t *testing.T) {
	setupEnv(t)
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--env-file", "", "versions", "restore", "abc"})

	assert.Error(t, cmd.Execute())
}
