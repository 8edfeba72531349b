package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Building the command tree registers every flag; a flag registered twice
// panics inside pflag, so construction itself is the assertion.
func TestRootCommandConstruction(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"serve", "seed", "passwd", "dashboard"} {
		sub, _, err := root.Find([]string{name})
		if err != nil || sub == root {
			t.Errorf("subcommand %q not registered: %v", name, err)
		}
	}

	serve, _, err := root.Find([]string{"serve"})
	if err != nil {
		t.Fatalf("find serve: %v", err)
	}
	for _, flag := range []string{"config", "addr", "backend", "data-dir"} {
		if serve.Flags().Lookup(flag) == nil {
			t.Errorf("serve missing --%s", flag)
		}
	}
}

func TestSeedCommand(t *testing.T) {
	cmd := newSeedCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--backend", "memory"})

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !strings.Contains(out.String(), "seeded") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestBlobPutGetRoundTrip(t *testing.T) {
	dataDir := t.TempDir()

	src := filepath.Join(t.TempDir(), "note.txt")
	content := []byte("hello from the blob store")
	if err := os.WriteFile(src, content, 0644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	put := newBlobPutCmd()
	var putOut bytes.Buffer
	put.SetOut(&putOut)
	put.SetArgs([]string{src, "--backend", "sqlite", "--data-dir", dataDir, "--mime", "text/plain"})
	if err := put.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("put: %v", err)
	}
	key := strings.TrimSpace(putOut.String())
	if key == "" {
		t.Fatal("put printed no key")
	}

	dst := filepath.Join(t.TempDir(), "out.txt")
	get := newBlobGetCmd()
	get.SetArgs([]string{key, "--backend", "sqlite", "--data-dir", dataDir, "-o", dst})
	if err := get.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("get: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("round trip mismatch: %q", got)
	}
}
