package dialog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Loader loads and optionally hot-reloads a prompt catalog from a YAML file.
// An empty path serves the default catalog.
type Loader struct {
	path string

	mu      sync.RWMutex
	catalog *Catalog
}

// NewLoader creates a new catalog loader for the given file.
func NewLoader(path string) *Loader {
	return &Loader{
		path:    path,
		catalog: DefaultCatalog(),
	}
}

// Load reads and validates the catalog file. On error the previously loaded
// catalog stays in place.
func (l *Loader) Load() (*Catalog, error) {
	if l.path == "" {
		return l.Current(), nil
	}

	c, err := loadCatalogFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", l.path, err)
	}

	l.mu.Lock()
	l.catalog = c
	l.mu.Unlock()

	return c, nil
}

// Current returns the most recently loaded catalog. It is the source func
// handed to NewWaterfall.
func (l *Loader) Current() *Catalog {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.catalog
}

func loadCatalogFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	if c.Name == "" {
		c.Name = filepath.Base(path)
	}

	out := c.WithDefaults()
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// WatchAndReload watches the catalog's directory and reloads the file when it
// changes. Editors often replace files by rename, so the directory is watched
// rather than the file. This blocks until the done channel is closed.
func (l *Loader) WatchAndReload(done <-chan struct{}) error {
	if l.path == "" {
		<-done
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(l.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch dir %q: %w", dir, err)
	}

	target := filepath.Clean(l.path)
	for {
		select {
		case <-done:
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if _, err := l.Load(); err != nil {
					slog.Warn("catalog reload failed, keeping previous",
						slog.String("path", l.path), slog.String("error", err.Error()))
					continue
				}
				slog.Info("catalog reloaded", slog.String("path", l.path))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}
