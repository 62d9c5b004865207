package prompt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/promptgate/internal/logging"
)

// TemplateExt is the file extension of prompt templates.
const TemplateExt = ".tmpl"

var (
	// ErrTemplateNotFound indicates no template file exists for a name.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrInvalidName indicates a template name that could escape the cache directory.
	ErrInvalidName = errors.New("invalid template name")

	// ErrCacheClosed indicates the cache was used after Close.
	ErrCacheClosed = errors.New("template cache closed")

	// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
	ErrWatcherFailed = errors.New("failed to initialize template watcher")
)

// Cache loads and parses templates from a directory once and serves them
// until invalidated. Construct once, share, and Close when done. Safe for
// concurrent use.
type Cache struct {
	dir    string
	logger *logging.Logger

	mu        sync.RWMutex
	templates map[string]*template.Template
	watcher   *fsnotify.Watcher
	closed    bool
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithLogger sets the cache logger.
func WithLogger(l *logging.Logger) CacheOption {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCache creates a cache over dir. The directory must exist.
func NewCache(dir string, opts ...CacheOption) (*Cache, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("template dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("template dir %s is not a directory", dir)
	}

	c := &Cache{
		dir:       dir,
		logger:    logging.NewNop(),
		templates: make(map[string]*template.Template),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get returns the named template, loading <dir>/<name>.tmpl on first use.
func (c *Cache) Get(name string) (*template.Template, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return nil, ErrCacheClosed
	}
	tmpl, ok := c.templates[name]
	c.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	tmpl, err := c.load(name)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrCacheClosed
	}
	// A concurrent loader may have won; keep the first parse.
	if existing, ok := c.templates[name]; ok {
		return existing, nil
	}
	c.templates[name] = tmpl
	return tmpl, nil
}

// Lookup is Get for callers that treat a missing template as expected. It
// reports false when the template does not exist or fails to load.
func (c *Cache) Lookup(name string) (*template.Template, bool) {
	tmpl, err := c.Get(name)
	if err != nil {
		return nil, false
	}
	return tmpl, true
}

// Invalidate drops the named template so the next Get reloads it.
func (c *Cache) Invalidate(name string) {
	c.mu.Lock()
	delete(c.templates, name)
	c.mu.Unlock()
}

// InvalidateAll drops every cached template.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.templates = make(map[string]*template.Template)
	c.mu.Unlock()
}

// Len returns the number of cached templates.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.templates)
}

// Watch invalidates templates when their files change. It returns once the
// watcher is running; watching stops when ctx is done or the cache is closed.
func (c *Cache) Watch(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrCacheClosed
	}
	if c.watcher != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}
	if err := watcher.Add(c.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watching %s: %w", c.dir, err)
	}
	c.watcher = watcher

	go c.processEvents(ctx, watcher)
	return nil
}

// Close stops any watcher and releases cached templates.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.templates = nil
	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}

func (c *Cache) processEvents(ctx context.Context, watcher *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			c.mu.Lock()
			if c.watcher == watcher {
				_ = watcher.Close()
				c.watcher = nil
			}
			c.mu.Unlock()
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, TemplateExt) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			name := strings.TrimSuffix(filepath.Base(event.Name), TemplateExt)
			c.Invalidate(name)
			c.logger.Debug(ctx, "template invalidated",
				zap.String("template", name),
				zap.String("op", event.Op.String()),
			)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			c.logger.Warn(ctx, "template watcher error", zap.Error(err))
		}
	}
}

func (c *Cache) load(name string) (*template.Template, error) {
	path := filepath.Join(c.dir, name+TemplateExt)
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
		}
		return nil, fmt.Errorf("reading template %s: %w", name, err)
	}

	tmpl, err := template.New(name).
		Option("missingkey=error").
		Funcs(funcMap).
		Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("parsing template %s: %w", name, err)
	}
	return tmpl, nil
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
