package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joshuapare/memfile/alloc"
)

func TestDemoCommand(t *testing.T) {
	tests := []struct {
		name        string
		audit       bool
		wantContain []string
	}{
		{
			name: "plain run",
			wantContain: []string{
				"Allocating 1024 bytes",
				"Growing to 2048 bytes",
				"prefix preserved, new bytes zero-filled",
				"Shrinking to 512 bytes",
				"Deallocating",
				"backing file removed",
				"1 allocs",
			},
		},
		{
			name:  "with audit log",
			audit: true,
			wantContain: []string{
				"backing file removed",
				"Audit log:",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Reset flags
			quiet = false
			verbose = false
			jsonOut = false
			demoInteractive = false
			demoAudit = tt.audit
			demoDir = filepath.Join(t.TempDir(), "demo")

			output, err := captureOutput(t, func() error {
				return runDemo(nil)
			})
			if err != nil {
				t.Fatalf("runDemo() error = %v\nOutput: %s", err, output)
			}

			assertContains(t, output, tt.wantContain)
		})
	}
}

func TestDemoAuditLeavesCompanionFile(t *testing.T) {
	quiet = true
	verbose = false
	jsonOut = false
	demoInteractive = false
	demoAudit = true
	demoDir = filepath.Join(t.TempDir(), "demo")

	if _, err := captureOutput(t, func() error { return runDemo(nil) }); err != nil {
		t.Fatalf("runDemo() error = %v", err)
	}

	entries, err := os.ReadDir(demoDir)
	if err != nil {
		t.Fatalf("failed to read demo dir: %v", err)
	}

	var mdFiles, memFiles int
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".md"):
			mdFiles++
		case strings.HasSuffix(e.Name(), ".mem"):
			memFiles++
		}
	}
	if mdFiles != 1 {
		t.Errorf("expected 1 audit log, found %d", mdFiles)
	}
	if memFiles != 0 {
		t.Errorf("expected no backing files after the demo, found %d", memFiles)
	}
}

func TestDemoInteractiveDecline(t *testing.T) {
	quiet = true
	verbose = false
	jsonOut = false
	demoInteractive = false
	demoAudit = false
	demoDir = filepath.Join(t.TempDir(), "demo")

	// A confirmer fed an empty stdin declines, and the demo requires the
	// file-backed path.
	c := newStdinConfirmer(strings.NewReader(""), io.Discard)
	if c.Confirm(alloc.LayoutOf(1024)) {
		t.Fatal("confirmer must decline on EOF")
	}

	c = newStdinConfirmer(strings.NewReader("y\n"), io.Discard)
	if !c.Confirm(alloc.LayoutOf(1024)) {
		t.Fatal("confirmer must accept on y")
	}

	c = newStdinConfirmer(strings.NewReader("no\n"), io.Discard)
	if c.Confirm(alloc.LayoutOf(1024)) {
		t.Fatal("confirmer must decline on no")
	}
}
