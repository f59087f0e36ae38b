package deps

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Unset", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}

	if results[1].Available {
		t.Fatal("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatal("expected detail message for missing binary")
	}

	if results[2].Available {
		t.Fatal("expected blank command to be unavailable")
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for blank command: %s", results[2].Detail)
	}
}

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()
	status := CheckDirectoryAccess("Work area", dir)
	if !status.Available {
		t.Fatalf("expected writable temp dir to pass, got %#v", status)
	}

	status = CheckDirectoryAccess("Work area", filepath.Join(dir, "nope"))
	if status.Available {
		t.Fatal("expected missing directory to fail")
	}
	if status.Detail != "does not exist" {
		t.Fatalf("unexpected detail: %s", status.Detail)
	}

	file := filepath.Join(dir, "plain")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	status = CheckDirectoryAccess("Work area", file)
	if status.Available {
		t.Fatal("expected regular file to fail directory check")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	orig := statfs
	t.Cleanup(func() { statfs = orig })

	statfs = func(path string) (uint64, uint64, error) {
		return 100 << 30, 10 << 30, nil
	}
	status := CheckFreeSpace("Work area", "/work", 2)
	if !status.Available {
		t.Fatalf("expected 10 GiB free to satisfy 2 GiB minimum, got %#v", status)
	}

	status = CheckFreeSpace("Work area", "/work", 50)
	if status.Available {
		t.Fatal("expected 10 GiB free to fail 50 GiB minimum")
	}
	if status.Detail == "" {
		t.Fatal("expected detail message on insufficient space")
	}

	statfs = func(path string) (uint64, uint64, error) {
		return 0, 0, errors.New("no such filesystem")
	}
	status = CheckFreeSpace("Work area", "/work", 2)
	if status.Available {
		t.Fatal("expected statfs error to fail the check")
	}
}
