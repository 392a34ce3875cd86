package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEmbeddedDefaults(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, key := range []string{"api.game_not_found", "api.move_required", "cli.welcome", "cli.help", "status.over"} {
		if !c.Has(key) {
			t.Fatalf("missing key %s", key)
		}
	}
	if got := c.Text("api.game_not_found", nil); got != "Game not found" {
		t.Fatalf("game_not_found = %q", got)
	}
	got, err := c.Render("cli.prompt", map[string]any{"Player": "white"})
	if err != nil || got != "white's move: " {
		t.Fatalf("prompt = %q, %v", got, err)
	}
	if !strings.HasPrefix(c.Text("cli.welcome", nil), "Welcome to Chess Master!\n") {
		t.Fatalf("unexpected welcome")
	}
}

func TestMissingDataIsAnError(t *testing.T) {
	c := Default()
	if _, err := c.Render("cli.prompt", map[string]any{}); err == nil {
		t.Fatalf("expected missingkey error")
	}
	if _, err := c.Render("no.such.key", nil); err == nil {
		t.Fatalf("expected not found error")
	}
	if got := c.Text("no.such.key", nil); got != "no.such.key" {
		t.Fatalf("fallback = %q", got)
	}
	var nilCat *Catalog
	if got := nilCat.Text("api.internal", nil); got != "api.internal" {
		t.Fatalf("nil catalog fallback = %q", got)
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("a.yaml", "api:\n  game_not_found: \"No such game {{.ID}}\"\n")
	write("b.yml", "extra:\n  hello: hi\n")
	write("ignored.txt", "api: nope")

	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Text("api.game_not_found", map[string]string{"ID": "x"}); got != "No such game x" {
		t.Fatalf("override = %q", got)
	}
	if got := c.Text("extra.hello", nil); got != "hi" {
		t.Fatalf("extra = %q", got)
	}
	if got := c.Text("api.move_required", nil); got != "Move is required" {
		t.Fatalf("default lost: %q", got)
	}
}

func TestOverrideDuplicateKeys(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("api:\n  internal: one\n"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "b.yaml"), []byte("api:\n  internal: two\n"), 0o644)
	if _, err := New(dir); err == nil || !strings.Contains(err.Error(), "duplicate override key") {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestNonStringLeafRejected(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("api:\n  internal: 3\n"), 0o644)
	if _, err := New(dir); err == nil {
		t.Fatalf("expected error for int leaf")
	}
}
