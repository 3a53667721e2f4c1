package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteSourceTree creates a minimal daemon source tree at dir.
func WriteSourceTree(t testing.TB, dir string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(dir, "core"), 0o755); err != nil {
		t.Fatalf("mkdir source tree: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "CMakeLists.txt"), []byte("project(lightsd C)\n"), 0o644); err != nil {
		t.Fatalf("write CMakeLists.txt: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "core", "lightsd.c"), []byte("int main(void) { return 0; }\n"), 0o644); err != nil {
		t.Fatalf("write lightsd.c: %v", err)
	}
}

// WriteDaemon writes an executable shell script standing in for the daemon.
func WriteDaemon(t testing.TB, path, body string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	writeExecutable(t, path, "#!/bin/sh\n"+body+"\n")
	return path
}

func writeExecutable(t testing.TB, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
