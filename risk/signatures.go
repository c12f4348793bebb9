package risk

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultAutomatedMarkers are lowercase substrings typical of headless
// browsers, HTTP libraries and crawlers.
var DefaultAutomatedMarkers = []string{
	"headlesschrome",
	"phantomjs",
	"selenium",
	"webdriver",
	"puppeteer",
	"playwright",
	"curl/",
	"wget/",
	"python-requests",
	"python-urllib",
	"aiohttp",
	"go-http-client",
	"okhttp",
	"java/",
	"libwww-perl",
	"scrapy",
	"httpclient",
	"crawler",
	"spider",
	"bot/",
}

// SignatureSet is a swappable set of automated-client markers. Reads are
// lock-free; [SignatureSet.Replace] swaps the whole set atomically.
type SignatureSet struct {
	markers atomic.Pointer[[]string]
}

// NewSignatureSet creates a set from markers. Nil means [DefaultAutomatedMarkers].
func NewSignatureSet(markers []string) *SignatureSet {
	if markers == nil {
		markers = DefaultAutomatedMarkers
	}
	s := &SignatureSet{}
	s.Replace(markers)
	return s
}

// Replace installs a new marker list. Markers are lowercased; blanks are dropped.
func (s *SignatureSet) Replace(markers []string) {
	clean := make([]string, 0, len(markers))
	for _, m := range markers {
		m = strings.ToLower(strings.TrimSpace(m))
		if m != "" {
			clean = append(clean, m)
		}
	}
	s.markers.Store(&clean)
}

// Markers returns a copy of the current markers.
func (s *SignatureSet) Markers() []string {
	p := s.markers.Load()
	if p == nil {
		return nil
	}
	return append([]string(nil), (*p)...)
}

// Matches reports whether signature contains any marker.
func (s *SignatureSet) Matches(signature string) bool {
	if s == nil || signature == "" {
		return false
	}
	p := s.markers.Load()
	if p == nil {
		return false
	}
	lower := strings.ToLower(signature)
	for _, m := range *p {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// ParseMarkers reads one marker per line. Blank lines and lines starting with
// '#' are ignored.
func ParseMarkers(r io.Reader) ([]string, error) {
	var out []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadFile replaces the set with the markers in path.
func (s *SignatureSet) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open signature list: %w", err)
	}
	defer f.Close()

	markers, err := ParseMarkers(f)
	if err != nil {
		return fmt.Errorf("read signature list: %w", err)
	}
	s.Replace(markers)
	return nil
}

// Watch loads path and reloads it whenever it changes until ctx is done.
// The parent directory is watched so editors that replace the file by rename
// are picked up. A failed reload keeps the previous markers.
func (s *SignatureSet) Watch(ctx context.Context, path string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := s.LoadFile(path); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return err
	}

	target := filepath.Clean(path)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if err := s.LoadFile(path); err != nil {
					logger.Warn("signature list reload failed", zap.String("path", path), zap.Error(err))
					continue
				}
				logger.Info("signature list reloaded", zap.String("path", path), zap.Int("markers", len(s.Markers())))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("signature list watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}
