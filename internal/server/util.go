package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/loykin/videospace/internal/browser"
	"github.com/loykin/videospace/internal/deeplink"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
)

func sanitizeBase(bp string) string {
	bp = strings.TrimSpace(bp)
	if bp == "" || bp == "/" {
		return ""
	}
	if !strings.HasPrefix(bp, "/") {
		bp = "/" + bp
	}
	bp = strings.TrimRight(bp, "/")
	return bp
}

// statusFor maps command errors to HTTP codes. Caller mistakes are 400;
// spawn and termination failures, and anything unexpected, are 500.
func statusFor(err error) int {
	if errors.Is(err, browser.ErrUnsupportedURL) || errors.Is(err, deeplink.ErrInvalidLink) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// parseLimit reads a positive limit, clamped to maxHistoryLimit.
func parseLimit(s string) (int, bool) {
	if s == "" {
		return defaultHistoryLimit, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	if n > maxHistoryLimit {
		n = maxHistoryLimit
	}
	return n, true
}

func writeJSON(c *gin.Context, code int, v any) {
	c.Header("Content-Type", "application/json")
	c.Status(code)
	_ = json.NewEncoder(c.Writer).Encode(v)
}
