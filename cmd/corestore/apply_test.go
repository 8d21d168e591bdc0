package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifestFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "buckets.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestRunApplyValidManifest(t *testing.T) {
	path := writeManifestFile(t, `
apiVersion: v1
buckets:
  - name: widgets
    key: id
    fields:
      id:
        type: string
      name:
        type: string
        required: true
`)
	applyCmd.Flags().Set("file", path)
	if err := runApply(applyCmd, nil); err != nil {
		t.Fatalf("runApply: %v", err)
	}
}

func TestRunApplyInvalidPattern(t *testing.T) {
	path := writeManifestFile(t, `
apiVersion: v1
buckets:
  - name: widgets
    key: id
    fields:
      id:
        type: string
        pattern: "["
`)
	applyCmd.Flags().Set("file", path)
	if err := runApply(applyCmd, nil); err == nil {
		t.Fatal("expected runApply to fail on an invalid regex pattern")
	}
}

func TestRunApplyMissingFile(t *testing.T) {
	applyCmd.Flags().Set("file", filepath.Join(t.TempDir(), "missing.yaml"))
	if err := runApply(applyCmd, nil); err == nil {
		t.Fatal("expected runApply to fail for a missing manifest file")
	}
}
