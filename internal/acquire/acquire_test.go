package acquire

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexborne/vulndetective/internal/config"
)

func testAcquirer(maxSize int64) *Acquirer {
	return New(config.AcquireConfig{
		MaxFileSize: maxSize,
		Timeout:     5 * time.Second,
	})
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLanguageForPath(t *testing.T) {
	cases := map[string]string{
		"app/views.py":                 "python",
		"src/index.JS":                 "javascript",
		"main.go":                      "go",
		"lib/parse.c":                  "c",
		"lib/parse.cpp":                "cpp",
		"https://example.com/query.py": "python",
		"README.md":                    "",
		"Makefile":                     "",
	}
	for path, want := range cases {
		assert.Equal(t, want, LanguageForPath(path), path)
	}
}

func TestAcquireSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "lookup.py", "import os\nquery = \"SELECT 1\"\n")

	units, err := testAcquirer(0).Acquire(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, units, 1)

	assert.Equal(t, path, units[0].Name)
	assert.Equal(t, "python", units[0].Language)
	assert.Equal(t, 2, units[0].NumLines())
}

func TestAcquireFileOverLimit(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "big.py", strings.Repeat("x = 1\n", 100))

	_, err := testAcquirer(32).Acquire(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "size limit")
}

func TestAcquireMissingTarget(t *testing.T) {
	_, err := testAcquirer(0).Acquire(context.Background(), filepath.Join(t.TempDir(), "nope.py"))
	assert.Error(t, err)
}

func TestAcquireDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "api/handler.py", "def handle(): pass\n")
	writeFile(t, dir, "web/app.js", "const x = 1;\n")
	writeFile(t, dir, "README.md", "# docs\n")
	writeFile(t, dir, "node_modules/dep/index.js", "module.exports = {};\n")
	writeFile(t, dir, ".git/config", "[core]\n")

	units, err := testAcquirer(0).Acquire(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, units, 2)

	// Units come back sorted by path, docs and vendored trees excluded.
	assert.True(t, strings.HasSuffix(units[0].Name, filepath.Join("api", "handler.py")))
	assert.True(t, strings.HasSuffix(units[1].Name, filepath.Join("web", "app.js")))
	assert.Equal(t, "python", units[0].Language)
	assert.Equal(t, "javascript", units[1].Language)
}

func TestAcquireDirectorySkipsOversized(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "small.py", "x = 1\n")
	writeFile(t, dir, "huge.py", strings.Repeat("y = 2\n", 50))

	units, err := testAcquirer(64).Acquire(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.True(t, strings.HasSuffix(units[0].Name, "small.py"))
}

func TestAcquireDirectoryNoSources(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notes.txt", "nothing here\n")

	_, err := testAcquirer(0).Acquire(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no recognized source files")
}

func TestAcquireURL(t *testing.T) {
	const body = "import pickle\npickle.loads(data)\n"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer server.Close()

	url := server.URL + "/loader.py"
	units, err := testAcquirer(0).Acquire(context.Background(), url)
	require.NoError(t, err)
	require.Len(t, units, 1)

	assert.Equal(t, url, units[0].Name)
	assert.Equal(t, "python", units[0].Language)
	assert.Equal(t, body, units[0].Text)
}

func TestAcquireURLErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := testAcquirer(0).Acquire(context.Background(), server.URL+"/gone.py")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestAcquireURLOverLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("a", 1024)))
	}))
	defer server.Close()

	_, err := testAcquirer(100).Acquire(context.Background(), server.URL+"/big.py")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "size limit")
}
