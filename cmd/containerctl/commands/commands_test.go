package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goodManifest = `
services:
  app:
    factory: app.kernel
    deps: [router, logger]
  router:
    factory: router.chi
    deps: [logger]
  logger:
    factory: logger.zap
    deps: [config]
  clock:
    factory: clock.system
    sharing: prototype
aliases:
  Psr\Log\LoggerInterface: logger
synthetic: [config]
removed:
  legacy.mailer: inlined
`

func writeManifest(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "services.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd("test")
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidate_OK(t *testing.T) {
	out, err := run(t, "validate", writeManifest(t, goodManifest))
	require.NoError(t, err)
	assert.Contains(t, out, "4 services, 1 aliases, 1 synthetic, 1 removed")
}

func TestValidate_ReportsProblems(t *testing.T) {
	path := writeManifest(t, `
services:
  a: {factory: fa, deps: [b]}
  b: {factory: fb, deps: [a]}
  "bad key": {factory: fc}
aliases:
  dangling: nowhere
`)
	out, err := run(t, "validate", path)
	require.ErrorIs(t, err, ErrInvalidManifest)
	assert.Contains(t, out, "circular reference")
	assert.Contains(t, out, `"nowhere" does not exist`)
	assert.Contains(t, out, "services.bad key")
}

func TestValidate_MissingFile(t *testing.T) {
	_, err := run(t, "validate", filepath.Join(t.TempDir(), "none.yaml"))
	assert.Error(t, err)
}

func TestInspect_Table(t *testing.T) {
	out, err := run(t, "inspect", writeManifest(t, goodManifest))
	require.NoError(t, err)
	assert.Contains(t, out, "KEY")
	assert.Contains(t, out, "legacy.mailer")
	assert.Contains(t, out, "(inlined)")
	assert.Contains(t, out, `Psr\Log\LoggerInterface`)
}

func TestInspect_FilterAndKey(t *testing.T) {
	path := writeManifest(t, goodManifest)

	out, err := run(t, "inspect", "--status", "synthetic", path)
	require.NoError(t, err)
	assert.Contains(t, out, "config")
	assert.NotContains(t, out, "router")

	out, err = run(t, "inspect", "--yaml", path, `Psr\Log\LoggerInterface`)
	require.NoError(t, err)
	assert.Contains(t, out, "key: logger")
	assert.Contains(t, out, "sharing: shared")

	_, err = run(t, "inspect", path, "loger")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `did you mean "logger"?`)
}

func TestGraph(t *testing.T) {
	path := writeManifest(t, goodManifest)

	out, err := run(t, "graph", path)
	require.NoError(t, err)
	assert.Regexp(t, `(?s)logger.*router.*app.*clock`, out)
	assert.Contains(t, out, "<- [config]")

	out, err = run(t, "graph", "--dot", path)
	require.NoError(t, err)
	assert.Contains(t, out, "digraph container {")
	assert.Contains(t, out, `"app" -> "router";`)
	assert.Contains(t, out, `"clock" [shape=ellipse];`)
	assert.Contains(t, out, "[style=dashed]")
}
