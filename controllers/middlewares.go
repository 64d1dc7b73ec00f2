package controllers

import (
	"net/http"
	"strings"

	"dripmate/services"
	"dripmate/storage"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

var loopbackHosts = []string{"localhost", "127.0.0.1", "::1"}

// HostMiddleware puts the host the UI was reached on into the request context,
// so backend calls go to the same machine. The Host header is client supplied
// and the stored token follows it, so only loopback names and the allowed
// hostnames are recorded; anything else leaves the context alone and calls go
// to localhost.
func HostMiddleware(allowed []string, logger *zap.Logger) echo.MiddlewareFunc {
	hosts := make(map[string]struct{}, len(allowed)+len(loopbackHosts))
	for _, host := range append(append([]string{}, loopbackHosts...), allowed...) {
		if hostname := services.Hostname(strings.TrimSpace(host)); hostname != "" {
			hosts[hostname] = struct{}{}
		}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if _, ok := hosts[services.Hostname(req.Host)]; !ok {
				logger.Debug("Ignoring unknown UI host", zap.String("host", req.Host))
				return next(c)
			}
			c.SetRequest(req.WithContext(services.WithHost(req.Context(), req.Host)))
			return next(c)
		}
	}
}

// SessionGuard turns away protected pages when there is no token, before any
// backend call is made.
func SessionGuard(session *storage.SessionStore, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := session.Token(); !ok {
				logger.Debug("No session, redirecting to login", zap.String("path", c.Path()))
				return c.JSON(http.StatusUnauthorized, Status{Redirect: LoginPath})
			}
			return next(c)
		}
	}
}
