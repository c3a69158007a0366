package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"

	"github.com/loykin/videospace/internal/logger"
	"github.com/skratchdot/open-golang/open"
)

// ErrUnsupportedURL is returned for URLs that are not absolute or whose scheme is not allowed.
var ErrUnsupportedURL = errors.New("unsupported url")

// DefaultSchemes are the schemes opened when none are configured.
var DefaultSchemes = []string{"http", "https"}

// Opener opens a URL in the user's browser.
type Opener interface {
	Open(ctx context.Context, rawURL string) error
}

// System hands URLs to the OS launcher (xdg-open, open, start).
type System struct {
	allowed []string
	log     *slog.Logger
	// start launches the OS handler without waiting for it; open.Start by default.
	start func(input string) error
}

// NewSystem returns an opener restricted to the given schemes.
func NewSystem(allowed []string, log *slog.Logger) *System {
	if len(allowed) == 0 {
		allowed = DefaultSchemes
	}
	norm := make([]string, 0, len(allowed))
	for _, s := range allowed {
		norm = append(norm, strings.ToLower(strings.TrimSpace(s)))
	}
	if log == nil {
		log = logger.Discard()
	}
	return &System{allowed: norm, log: log.With("component", "browser"), start: open.Start}
}

// Check validates rawURL without opening it.
func (s *System) Check(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedURL, err)
	}
	if !u.IsAbs() || (u.Host == "" && u.Opaque == "") {
		return nil, fmt.Errorf("%w: %q is not an absolute url", ErrUnsupportedURL, rawURL)
	}
	if !slices.Contains(s.allowed, strings.ToLower(u.Scheme)) {
		return nil, fmt.Errorf("%w: scheme %q not allowed", ErrUnsupportedURL, u.Scheme)
	}
	return u, nil
}

// Open validates rawURL and launches the OS browser. It does not wait for the browser.
func (s *System) Open(_ context.Context, rawURL string) error {
	u, err := s.Check(rawURL)
	if err != nil {
		return err
	}
	if err := s.start(u.String()); err != nil {
		s.log.Error("open in browser failed", "url", u.String(), "error", err)
		return fmt.Errorf("open %s: %w", u.Redacted(), err)
	}
	s.log.Info("opened in browser", "url", u.Redacted())
	return nil
}
