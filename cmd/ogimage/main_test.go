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

const wide = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 200 100"><rect width="200" height="100" fill="#123456"/></svg>`

func project(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "public", "og", "posts")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hello.svg"), []byte(wide), 0o644))
	return root
}

func TestRun_Version(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{"version"}, &out, &errOut)
	assert.Equal(t, exitOK, code)
	assert.True(t, strings.HasPrefix(out.String(), "ogimage "+version))
}

func TestRun_ConfigPrintsTOML(t *testing.T) {
	root := t.TempDir()
	var out, errOut bytes.Buffer
	code := run([]string{"config", "--root", root, "-j", "3", "--category", "news"}, &out, &errOut)
	require.Equal(t, exitOK, code, errOut.String())
	assert.Contains(t, out.String(), "concurrency = 3")
	assert.Regexp(t, `categories = \[['"]news['"]\]`, out.String())
}

func TestRun_InvalidConfigFails(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{"config", "--root", t.TempDir(), "--width", "0"}, &out, &errOut)
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, errOut.String(), "invalid configuration")
}

func TestRun_MissingRootFails(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{"--root", filepath.Join(t.TempDir(), "nope"), "--no-color"}, &out, &errOut)
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, errOut.String(), "root not found")
	assert.Contains(t, errOut.String(), "hint:")
}

func TestRun_BuildThenCheck(t *testing.T) {
	root := project(t)
	var out, errOut bytes.Buffer

	code := run([]string{"--root", root, "--no-color"}, &out, &errOut)
	require.Equal(t, exitOK, code, errOut.String())
	assert.FileExists(t, filepath.Join(root, "public", "og", "posts", "hello.png"))
	assert.FileExists(t, filepath.Join(root, ".og-cache.json"))

	assert.Equal(t, exitOK, run([]string{"check", "--root", root, "--no-color"}, &out, &errOut))

	src := filepath.Join(root, "public", "og", "posts", "hello.svg")
	require.NoError(t, os.WriteFile(src, []byte(wide+"\n"), 0o644))
	assert.Equal(t, exitFailure, run([]string{"check", "--root", root, "--no-color"}, &out, &errOut))
}

func TestRun_CorruptSourceStillExitsZero(t *testing.T) {
	root := project(t)
	bad := filepath.Join(root, "public", "og", "posts", "broken.svg")
	require.NoError(t, os.WriteFile(bad, []byte("<svg"), 0o644))

	var out, errOut bytes.Buffer
	code := run([]string{"--root", root, "--no-color"}, &out, &errOut)
	assert.Equal(t, exitOK, code)
	assert.NoFileExists(t, filepath.Join(root, "public", "og", "posts", "broken.png"))
}

func TestRun_UnknownCommand(t *testing.T) {
	var out, errOut bytes.Buffer
	assert.Equal(t, exitFailure, run([]string{"chek"}, &out, &errOut))
}
