package dialog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoaderLoad(t *testing.T) {
	dir := t.TempDir()

	yamlContent := `
name: travel-fr
version: "2"
origin:
  text: "D'où partez-vous ?"
  example: Lyon
confirm:
  style: choice
  yes: Oui
  no: Non
  max_attempts: 2
cancelled: "Annulation"
`
	path := filepath.Join(dir, "catalog.yaml")
	if err := os.WriteFile(path, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	loader := NewLoader(path)
	c, err := loader.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if c.Name != "travel-fr" {
		t.Errorf("name = %q", c.Name)
	}
	if c.Origin.Text != "D'où partez-vous ?" || c.Origin.Example != "Lyon" {
		t.Errorf("origin = %+v", c.Origin)
	}
	if c.Confirm.Style != ConfirmChoice || c.Confirm.MaxAttempts != 2 {
		t.Errorf("confirm = %+v", c.Confirm)
	}
	// Unset entries fall back to the defaults.
	if c.Destination.Text != DefaultCatalog().Destination.Text {
		t.Errorf("destination = %q, want default", c.Destination.Text)
	}
	if c.Confirm.Summary != DefaultCatalog().Confirm.Summary {
		t.Error("summary should fall back to the default")
	}
	if loader.Current() != c {
		t.Error("Current should return the loaded catalog")
	}
}

func TestLoaderEmptyPathServesDefault(t *testing.T) {
	loader := NewLoader("")
	c, err := loader.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Origin.Text != "What is your departure city?" {
		t.Errorf("origin = %q", c.Origin.Text)
	}
}

func TestLoaderInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("{{invalid yaml"), 0644); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(path)
	if _, err := loader.Load(); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
	if loader.Current().Name != "default" {
		t.Error("failed load should keep the previous catalog")
	}
}

func TestLoaderInvalidCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	content := "confirm:\n  style: maybe\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := NewLoader(path).Load()
	if err == nil || !strings.Contains(err.Error(), "confirm style") {
		t.Fatalf("err = %v, want confirm style error", err)
	}
}

func TestLoaderMissingFile(t *testing.T) {
	if _, err := NewLoader(filepath.Join(t.TempDir(), "nope.yaml")).Load(); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoaderWatchAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	if err := os.WriteFile(path, []byte("help: first\n"), 0644); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(path)
	if _, err := loader.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	done := make(chan struct{})
	errCh := make(chan error, 1)
	go func() { errCh <- loader.WatchAndReload(done) }()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("help: second\n"), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for loader.Current().Help != "second" {
		if time.Now().After(deadline) {
			t.Fatalf("help = %q after reload, want %q", loader.Current().Help, "second")
		}
		time.Sleep(20 * time.Millisecond)
	}

	close(done)
	if err := <-errCh; err != nil {
		t.Errorf("WatchAndReload: %v", err)
	}
}
