package file

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/manifold/internal/compiler"
	"github.com/aretw0/manifold/internal/logging"
	"github.com/aretw0/manifold/pkg/domain"
	"github.com/aretw0/manifold/pkg/manifest"
	"github.com/fsnotify/fsnotify"
)

// manifestExts are the document extensions recognized as manifests.
var manifestExts = []string{".yaml", ".yml", ".json"}

// Provider implements ports.ManifestProvider and ports.Watchable on a
// directory: each <version>.yaml (or .yml, .json) file holds one manifest.
//
// The directory is treated as append-only. Editing a published file breaks
// the version immutability the AST cache relies on; write a new file instead.
type Provider struct {
	Dir      string
	debounce time.Duration
	parser   *compiler.Parser
	logger   *slog.Logger
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithDebounce sets how long Watch waits for writes to settle before signaling.
func WithDebounce(d time.Duration) ProviderOption {
	return func(p *Provider) {
		p.debounce = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ProviderOption {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProvider creates a provider over dir.
func NewProvider(dir string, opts ...ProviderOption) *Provider {
	p := &Provider{
		Dir:      dir,
		debounce: 200 * time.Millisecond,
		parser:   compiler.NewParser(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Get reads and decodes the document for version.
func (p *Provider) Get(ctx context.Context, version string) (*manifest.Bundle, error) {
	path, ok := p.find(version)
	if !ok {
		return nil, fmt.Errorf("manifest %s: %w", version, domain.ErrManifestNotFound)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("manifest %s: %w", version, domain.ErrManifestNotFound)
		}
		return nil, fmt.Errorf("failed to read manifest %s: %w", version, err)
	}

	bundle, err := p.parser.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", version, err)
	}
	return bundle, nil
}

func (p *Provider) find(version string) (string, bool) {
	if version == "" || strings.ContainsAny(version, `/\`) || strings.HasPrefix(version, ".") {
		return "", false
	}
	for _, ext := range manifestExts {
		path := filepath.Join(p.Dir, version+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// Versions lists the version ids present in the directory, sorted.
func (p *Provider) Versions(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(p.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list manifests: %w", err)
	}

	seen := make(map[string]bool)
	versions := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version, ok := versionOf(entry.Name())
		if !ok || seen[version] {
			continue
		}
		seen[version] = true
		versions = append(versions, version)
	}
	sort.Strings(versions)
	return versions, nil
}

func versionOf(name string) (string, bool) {
	if strings.HasPrefix(name, ".") {
		return "", false
	}
	ext := filepath.Ext(name)
	for _, known := range manifestExts {
		if ext == known {
			return strings.TrimSuffix(name, ext), true
		}
	}
	return "", false
}

// Watch signals the version id of every manifest file created or written in
// the directory. Bursts of events for one file are debounced. The channel is
// closed when ctx is done.
func (p *Provider) Watch(ctx context.Context) (<-chan string, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(p.Dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", p.Dir, err)
	}

	out := make(chan string, 16)
	go p.processEvents(ctx, watcher, out)

	p.logger.Debug("watching manifest directory", "dir", p.Dir)
	return out, nil
}

func (p *Provider) processEvents(ctx context.Context, watcher *fsnotify.Watcher, out chan<- string) {
	defer close(out)
	defer watcher.Close()

	pending := make(map[string]bool)
	timer := time.NewTimer(p.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			version, ok := versionOf(filepath.Base(event.Name))
			if !ok {
				continue
			}
			p.logger.Debug("manifest file changed", "file", event.Name, "op", event.Op.String())
			pending[version] = true
			timer.Reset(p.debounce)

		case <-timer.C:
			versions := make([]string, 0, len(pending))
			for v := range pending {
				versions = append(versions, v)
			}
			sort.Strings(versions)
			clear(pending)
			for _, v := range versions {
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("watcher error", "error", err)
		}
	}
}
