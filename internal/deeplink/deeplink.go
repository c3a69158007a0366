package deeplink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/loykin/videospace/internal/logger"
)

// ErrInvalidLink is returned for empty, unparsable or foreign-scheme links.
var ErrInvalidLink = errors.New("invalid deep link")

var schemeRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.\-]*$`)

// ValidScheme reports whether s is a syntactically valid URL scheme.
func ValidScheme(s string) bool { return schemeRe.MatchString(s) }

// Link is a parsed deep link such as video-space://open?url=https://example.com.
type Link struct {
	Raw    string     `json:"raw"`
	Action string     `json:"action"`
	Params url.Values `json:"params"`
}

// Parse parses raw as a link for scheme. The action is the host part, or the
// first path segment for the scheme:///action form.
func Parse(scheme, raw string) (Link, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Link{}, fmt.Errorf("%w: empty", ErrInvalidLink)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Link{}, fmt.Errorf("%w: %v", ErrInvalidLink, err)
	}
	if !strings.EqualFold(u.Scheme, scheme) {
		return Link{}, fmt.Errorf("%w: scheme %q, want %q", ErrInvalidLink, u.Scheme, scheme)
	}
	action := u.Host
	if action == "" {
		p := strings.TrimPrefix(u.Path, "/")
		if u.Opaque != "" {
			p = u.Opaque
		}
		action, _, _ = strings.Cut(p, "/")
	}
	return Link{Raw: raw, Action: strings.ToLower(action), Params: u.Query()}, nil
}

// HandlerFunc handles one deep-link action.
type HandlerFunc func(ctx context.Context, l Link) error

// Router dispatches parsed links to registered actions.
type Router struct {
	scheme string
	log    *slog.Logger

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// NewRouter returns a router for links of the given scheme.
func NewRouter(scheme string, log *slog.Logger) *Router {
	if log == nil {
		log = logger.Discard()
	}
	return &Router{
		scheme:   scheme,
		log:      log.With("component", "deeplink"),
		handlers: make(map[string]HandlerFunc),
	}
}

// Scheme returns the scheme the router accepts.
func (r *Router) Scheme() string { return r.scheme }

// Handle registers fn for action, replacing any previous handler.
func (r *Router) Handle(action string, fn HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[strings.ToLower(action)] = fn
}

// Actions lists the registered action names.
func (r *Router) Actions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for a := range r.handlers {
		out = append(out, a)
	}
	return out
}

// Dispatch parses raw and runs the matching handler. Malformed or foreign
// links and unknown actions are logged and accepted; only a failing handler
// returns an error.
func (r *Router) Dispatch(ctx context.Context, raw string) error {
	l, err := Parse(r.scheme, raw)
	if err != nil {
		r.log.Warn("ignoring deep link", "url", raw, "error", err)
		return nil
	}
	r.mu.RLock()
	fn, ok := r.handlers[l.Action]
	r.mu.RUnlock()
	if !ok {
		r.log.Info("deep link received", "url", raw, "action", l.Action)
		return nil
	}
	r.log.Debug("dispatching deep link", "action", l.Action)
	if err := fn(ctx, l); err != nil {
		return fmt.Errorf("deep link %s: %w", l.Action, err)
	}
	return nil
}
