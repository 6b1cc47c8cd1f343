package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args against a small-mesh config.
func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[kernel]\nmesh_cells = 16\n[log]\nlevel = \"error\"\n"), 0o644))
	t.Setenv("HOME", dir)
	t.Setenv("BURL_CONFIG", "")

	require.NoError(t, runCmd.Flags().Set("meshes", "false"))
	require.NoError(t, runCmd.Flags().Set("stl", ""))

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append(args, "--config", cfgPath))
	err = rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func writeScript(t *testing.T, src string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "script.burl")
	require.NoError(t, os.WriteFile(p, []byte(src), 0o644))
	return p
}

func lineWith(out, needle string) string {
	for _, l := range strings.Split(out, "\n") {
		if strings.Contains(l, needle) {
			return l
		}
	}
	return ""
}

func TestRunExampleScript(t *testing.T) {
	out, _, err := execute(t, "run", filepath.Join("..", "..", "examples", "primitives.burl"))
	require.NoError(t, err)

	plate := lineWith(out, "length=4 width=2 height=0.25")
	require.NotEmpty(t, plate, out)
	assert.Contains(t, plate, "box")
	assert.Contains(t, plate, "*", "tap leaves the plate selected")

	post := lineWith(out, "radius=0.5 height=3")
	require.NotEmpty(t, post, out)
	assert.Contains(t, post, "(-1.5, 0, 1.75)")
	assert.NotContains(t, post, "*")

	assert.NotEmpty(t, lineWith(out, "sphere"))
	assert.NotContains(t, out, "VERTICES")
}

func TestRunMeshes(t *testing.T) {
	script := writeScript(t, "(sphere :radius 1)\n")
	out, _, err := execute(t, "run", "--meshes", script)
	require.NoError(t, err)
	assert.Contains(t, out, "VERTICES")
	assert.Contains(t, out, "TRIANGLES")

	row := lineWith(out, "radius=1")
	require.NotEmpty(t, row, out)
	assert.NotContains(t, row, " 0 ", "sphere tessellates to a non-empty mesh")
}

func TestRunWritesSTL(t *testing.T) {
	stl := filepath.Join(t.TempDir(), "scene.stl")
	script := writeScript(t, "(box :length 1 :width 1 :height 1)\n")
	_, _, err := execute(t, "run", "--stl", stl, script)
	require.NoError(t, err)

	info, err := os.Stat(stl)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(84))
}

func TestRunEmptyScript(t *testing.T) {
	out, _, err := execute(t, "run", writeScript(t, ";; nothing\n"))
	require.NoError(t, err)
	assert.Equal(t, "no objects\n", out)
}

func TestRunEvalErrors(t *testing.T) {
	script := writeScript(t, "(box :length 1 :width 1 :height 1)\n(select 99)\n")
	out, errOut, err := execute(t, "run", script)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "evaluation error")
	assert.Contains(t, errOut, script)
	assert.NotEmpty(t, lineWith(out, "length=1"), "objects created before the error are still listed")
}

func TestRunMissingScript(t *testing.T) {
	_, _, err := execute(t, "run", filepath.Join(t.TempDir(), "absent.burl"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read script")
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "burl version "+Version+"\n", out)
}

func TestConfigCommand(t *testing.T) {
	out, _, err := execute(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "mesh_cells: 16")
	assert.Contains(t, out, "backend: sdfx")
	assert.Contains(t, out, "long_press: 600ms")
}
