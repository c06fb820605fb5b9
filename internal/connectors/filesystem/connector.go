// Package filesystem discovers text documents on local disk and watches
// directories for changes.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure Connector implements the interfaces.
var (
	_ driven.DocumentSource  = (*Connector)(nil)
	_ driven.DocumentWatcher = (*Connector)(nil)
)

// Defaults.
const (
	DefaultMaxFileSize = 10 << 20
	DefaultDebounce    = 200 * time.Millisecond
)

// DefaultExtensions are the file extensions collected when none are configured.
var DefaultExtensions = []string{".txt", ".md", ".markdown"}

// NormalisedExtensions adds formats that need a normaliser to extract text.
var NormalisedExtensions = []string{".txt", ".md", ".markdown", ".html", ".htm", ".docx", ".eml"}

// Errors returned for files that cannot be ingested.
var (
	ErrFileTooLarge = errors.New("file too large")
	ErrNotText      = errors.New("file is not valid UTF-8 text")
)

// Connector reads documents from the local filesystem.
type Connector struct {
	extensions map[string]struct{}
	maxSize    int64
	debounce   time.Duration
	normaliser driven.Normaliser

	mu       sync.Mutex
	closed   bool
	watchers []*fsnotify.Watcher
}

// Option configures a Connector.
type Option func(*Connector)

// WithExtensions replaces the collected file extensions (e.g. ".txt").
func WithExtensions(exts ...string) Option {
	return func(c *Connector) {
		c.extensions = make(map[string]struct{}, len(exts))
		for _, e := range exts {
			e = strings.ToLower(strings.TrimSpace(e))
			if e == "" {
				continue
			}
			if !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			c.extensions[e] = struct{}{}
		}
	}
}

// WithMaxFileSize skips files larger than n bytes.
func WithMaxFileSize(n int64) Option {
	return func(c *Connector) {
		c.maxSize = n
	}
}

// WithDebounce sets how long Watch waits for a burst of events to settle.
func WithDebounce(d time.Duration) Option {
	return func(c *Connector) {
		c.debounce = d
	}
}

// WithNormaliser extracts text through n instead of reading files as
// UTF-8. Use it together with WithExtensions to admit formats such as
// .html or .docx.
func WithNormaliser(n driven.Normaliser) Option {
	return func(c *Connector) {
		c.normaliser = n
	}
}

// New creates a filesystem connector.
func New(opts ...Option) *Connector {
	c := &Connector{
		maxSize:  DefaultMaxFileSize,
		debounce: DefaultDebounce,
	}
	WithExtensions(DefaultExtensions...)(c)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect resolves files, directories and glob patterns into documents.
// Directories are walked recursively, skipping hidden entries. Files that
// are too large or not text are skipped with a warning.
func (c *Connector) Collect(ctx context.Context, paths []string) ([]domain.DocumentInput, error) {
	var files []string
	seen := make(map[string]struct{})

	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		files = append(files, p)
	}

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		matches, err := expand(p)
		if err != nil {
			return nil, err
		}

		for _, m := range matches {
			found, err := c.walk(ctx, m)
			if err != nil {
				return nil, err
			}
			for _, f := range found {
				add(f)
			}
		}
	}

	inputs := make([]domain.DocumentInput, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		input, err := c.readDocument(ctx, f)
		if err != nil {
			logger.Warn("Skipping %s: %v", f, err)
			continue
		}
		inputs = append(inputs, input)
	}

	logger.Debug("Collected %d of %d candidate files", len(inputs), len(files))
	return inputs, nil
}

// expand resolves a glob pattern or plain path into absolute paths.
func expand(p string) ([]string, error) {
	if strings.ContainsAny(p, "*?[") {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("pattern %s: %w", p, err)
		}
		out := make([]string, 0, len(matches))
		for _, m := range matches {
			abs, err := filepath.Abs(m)
			if err != nil {
				return nil, err
			}
			out = append(out, abs)
		}
		return out, nil
	}

	abs, err := filepath.Abs(p)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(abs); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("path %s does not exist", p)
		}
		return nil, fmt.Errorf("path %s: %w", p, err)
	}
	return []string{abs}, nil
}

// walk returns the matching files at or below root.
func (c *Connector) walk(ctx context.Context, root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		if !c.matches(root) {
			logger.Debug("Skipping %s: unsupported extension", root)
			return nil, nil
		}
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && c.matches(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return files, nil
}

func (c *Connector) matches(path string) bool {
	_, ok := c.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// readDocument loads a file as a DocumentInput.
func (c *Connector) readDocument(ctx context.Context, path string) (domain.DocumentInput, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.DocumentInput{}, err
	}
	if c.maxSize > 0 && info.Size() > c.maxSize {
		return domain.DocumentInput{}, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.DocumentInput{}, err
	}

	mimeType := detectMIMEType(path)
	input := domain.DocumentInput{
		Name: filepath.Base(path),
		Type: documentType(path),
		Metadata: map[string]any{
			domain.MetadataPath: path,
			"size":              info.Size(),
			"modified":          info.ModTime().UTC().Format(time.RFC3339),
			"mime":              mimeType,
		},
	}

	if c.normaliser == nil {
		if !utf8.Valid(data) {
			return domain.DocumentInput{}, ErrNotText
		}
		input.Content = string(data)
		return input, nil
	}

	doc, err := c.normaliser.Normalise(ctx, &domain.RawDocument{Path: path, MIMEType: mimeType, Content: data})
	if err != nil {
		return domain.DocumentInput{}, err
	}
	input.Content = doc.Content
	for k, v := range doc.Metadata {
		input.Metadata[k] = v
	}
	if doc.Title != "" {
		input.Metadata["title"] = doc.Title
	}
	return input, nil
}

// documentType maps a file extension to a short document type.
func documentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return "markdown"
	case ".txt", "":
		return "text"
	case ".htm", ".html":
		return "html"
	default:
		return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
}

// detectMIMEType returns the MIME type for a file name without parameters.
func detectMIMEType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case "":
		return "text/plain"
	case ".md", ".markdown":
		return "text/markdown"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".eml":
		return "message/rfc822"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		if i := strings.Index(t, ";"); i >= 0 {
			t = t[:i]
		}
		return strings.TrimSpace(t)
	}
	return "application/octet-stream"
}

// isHidden reports whether any element of path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "" || part == "." || part == ".." {
			continue
		}
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

// Watch emits a change for every matching file written or removed under dir.
// Events for the same file within the debounce window are coalesced.
func (c *Connector) Watch(ctx context.Context, dir string) (<-chan domain.DocumentChange, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path error: %s is not a directory", dir)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, errors.New("connector is closed")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	c.watchers = append(c.watchers, watcher)
	c.mu.Unlock()

	if err := addRecursive(watcher, root); err != nil {
		watcher.Close()
		return nil, err
	}

	out := make(chan domain.DocumentChange)
	go c.watchLoop(ctx, watcher, root, out)
	return out, nil
}

func addRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (c *Connector) watchLoop(ctx context.Context, w *fsnotify.Watcher, root string, out chan<- domain.DocumentChange) {
	defer close(out)
	defer w.Close()

	pending := make(map[string]bool)
	var order []string
	var timer *time.Timer
	var fire <-chan time.Time

	flush := func() bool {
		for _, path := range order {
			change, ok := c.buildChange(ctx, path, pending[path])
			if !ok {
				continue
			}
			select {
			case out <- change:
			case <-ctx.Done():
				return false
			}
		}
		clear(pending)
		order = order[:0]
		return true
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.Events:
			if !ok {
				return
			}
			path, removed, ok := c.handleFsEvent(w, root, event)
			if !ok {
				continue
			}
			if _, queued := pending[path]; !queued {
				order = append(order, path)
			}
			pending[path] = removed

			if timer == nil {
				timer = time.NewTimer(c.debounce)
				fire = timer.C
			} else {
				timer.Reset(c.debounce)
			}

		case <-fire:
			timer = nil
			fire = nil
			if !flush() {
				return
			}

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Warn("Watcher error: %v", err)
		}
	}
}

// handleFsEvent classifies a raw event. It reports the affected file and
// whether it was removed; ok is false for events that should be ignored.
// New directories are added to the watcher.
func (c *Connector) handleFsEvent(w *fsnotify.Watcher, root string, event fsnotify.Event) (path string, removed, ok bool) {
	rel, err := filepath.Rel(root, event.Name)
	if err != nil || isHidden(rel) {
		return "", false, false
	}

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		if !c.matches(event.Name) {
			return "", false, false
		}
		return event.Name, true, true
	}

	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false, false
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return "", false, false
	}
	if info.IsDir() {
		if event.Has(fsnotify.Create) && w != nil {
			if err := addRecursive(w, event.Name); err != nil {
				logger.Warn("Failed to watch new directory: %v", err)
			}
		}
		return "", false, false
	}
	if !c.matches(event.Name) {
		return "", false, false
	}
	return event.Name, false, true
}

// buildChange reads the file for a pending path. A file that vanished
// before the debounce fired is reported as removed.
func (c *Connector) buildChange(ctx context.Context, path string, removed bool) (domain.DocumentChange, bool) {
	if removed {
		if _, err := os.Stat(path); err != nil {
			return domain.DocumentChange{Path: path, Removed: true}, true
		}
		// Renamed back or recreated within the window.
	}

	input, err := c.readDocument(ctx, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.DocumentChange{Path: path, Removed: true}, true
		}
		logger.Warn("Skipping %s: %v", path, err)
		return domain.DocumentChange{}, false
	}
	return domain.DocumentChange{Path: path, Input: input}, true
}

// Close stops all watchers. It is safe to call more than once.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	for _, w := range c.watchers {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.watchers = nil
	return errors.Join(errs...)
}
