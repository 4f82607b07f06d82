package catalog

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
)

func writeCatalogFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll error = %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile error = %v", err)
	}
}

func TestLoadDir_ValidCatalog(t *testing.T) {
	dir := t.TempDir()
	writeCatalogFile(t, dir, "recording.yaml", `resource: recording
operations:
  - name: vapi_get_recording
    description: Get a recording
    method: GET
    path: /recording/{id}
    fields:
      - name: id
        type: string
        required: true
`)
	writeCatalogFile(t, dir, "_notes.yaml", "not: [valid")
	writeCatalogFile(t, dir, "README.md", "ignored")

	registry, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}
	if got, want := len(registry), 1; got != want {
		t.Fatalf("len(registry) = %d, want %d", got, want)
	}
	op, ok := registry["vapi_get_recording"]
	if !ok {
		t.Fatal("registry missing key \"vapi_get_recording\"")
	}
	if got, want := op.Method, http.MethodGet; got != want {
		t.Fatalf("Method = %q, want %q", got, want)
	}
	if got, want := op.Body, BodyNone; got != want {
		t.Fatalf("Body = %q, want %q", got, want)
	}
}

func TestLoadDir_Subdirectories(t *testing.T) {
	dir := t.TempDir()
	writeCatalogFile(t, dir, "a.yaml", "operations:\n  - name: a\n    method: GET\n    path: /a\n")
	writeCatalogFile(t, dir, "extra/b.yaml", "operations:\n  - name: b\n    method: GET\n    path: /b\n")

	registry, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}
	for _, name := range []string{"a", "b"} {
		if _, ok := registry[name]; !ok {
			t.Fatalf("registry missing %q", name)
		}
	}
}

func TestLoadDir_EmptyDir(t *testing.T) {
	registry, err := LoadDir(t.TempDir())
	if err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}
	if len(registry) != 0 {
		t.Fatalf("len(registry) = %d, want 0", len(registry))
	}
}

func TestLoadDir_NonexistentDir(t *testing.T) {
	if _, err := LoadDir("/nonexistent/dir/that/does/not/exist"); err == nil {
		t.Fatal("LoadDir() should return error for nonexistent dir")
	}
}

func TestLoadDir_InvalidOperation(t *testing.T) {
	dir := t.TempDir()
	writeCatalogFile(t, dir, "bad.yaml", "operations:\n  - name: bad\n    method: GET\n    path: /bad/{id}\n")

	if _, err := LoadDir(dir); err == nil {
		t.Fatal("LoadDir() should reject a path parameter without a field")
	}
}

func TestMerge(t *testing.T) {
	base := map[string]*Operation{
		"a": {Name: "a", Path: "/a"},
		"b": {Name: "b", Path: "/b"},
	}
	overlay := map[string]*Operation{
		"b": {Name: "b", Path: "/b2"},
		"c": {Name: "c", Path: "/c"},
	}

	merged := Merge(base, overlay)
	if got, want := len(merged), 3; got != want {
		t.Fatalf("len(merged) = %d, want %d", got, want)
	}
	if got, want := merged["b"].Path, "/b2"; got != want {
		t.Fatalf("merged[b].Path = %q, want %q", got, want)
	}
	if got, want := base["b"].Path, "/b"; got != want {
		t.Fatalf("base[b].Path = %q, want %q (base must not change)", got, want)
	}
}
