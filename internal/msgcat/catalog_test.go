package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderEmbeddedMessages(t *testing.T) {
	c := MustDefault()

	got, err := c.Render("calibration.complete", map[string]any{"Rating": 2531})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := "Training complete! Your personalized bot has been created with an ELO of 2531, matching your current skill level."
	if got != want {
		t.Fatalf("got %q", got)
	}

	prompt, err := c.Render("coach.user_prompt", map[string]any{"FEN": "x", "Message": "hi"})
	if err != nil {
		t.Fatalf("render prompt: %v", err)
	}
	if prompt != "Current chess position (FEN): x\nUser message: hi" {
		t.Fatalf("prompt = %q", prompt)
	}
}

func TestRenderMissingKeyAndData(t *testing.T) {
	c := MustDefault()
	if _, err := c.Render("no.such.key", nil); err == nil {
		t.Fatalf("expected missing template error")
	}
	if _, err := c.Render("calibration.complete", map[string]any{}); err == nil {
		t.Fatalf("expected missing data error")
	}
	if got := c.Text("no.such.key", nil, "fallback"); got != "fallback" {
		t.Fatalf("Text fallback = %q", got)
	}
	var nilCat *Catalog
	if got := nilCat.Text("coach.apology", nil, "fb"); got != "fb" {
		t.Fatalf("nil catalog Text = %q", got)
	}
}

func TestOverrideDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("coach:\n  apology: \"try later\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if got, _ := c.Render("coach.apology", nil); got != "try later" {
		t.Fatalf("override not applied: %q", got)
	}

	if err := os.WriteFile(filepath.Join(dir, "b.yml"), []byte("coach:\n  apology: \"dup\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(dir); err == nil || !strings.Contains(err.Error(), "duplicate override key") {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
}

func TestNonStringLeafRejected(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("coach:\n  retries: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(dir); err == nil {
		t.Fatalf("expected unsupported value error")
	}
}
