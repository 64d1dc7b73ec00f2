package services

import (
	"context"
	"net"
	"strconv"
	"strings"
)

const (
	DefaultAPIPort = 8000
	DefaultAPIPath = "/api"
)

// BaseURLResolver yields the backend base URL for a call.
type BaseURLResolver func(ctx context.Context) string

type hostKey struct{}

// WithHost records the host the UI was reached on, so the backend is looked up
// on the same machine whether that is localhost or a LAN address.
func WithHost(ctx context.Context, host string) context.Context {
	if host == "" {
		return ctx
	}
	return context.WithValue(ctx, hostKey{}, host)
}

func HostFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	host, _ := ctx.Value(hostKey{}).(string)
	return host
}

// Hostname strips the port and brackets from a Host header value.
func Hostname(host string) string {
	hostname := host
	if h, _, err := net.SplitHostPort(host); err == nil {
		hostname = h
	}
	return strings.ToLower(strings.Trim(hostname, "[]"))
}

// ResolveBaseURL builds http://<hostname>:<port><path>. Any port on host is
// dropped; an empty host means localhost.
func ResolveBaseURL(host string, port int, path string) string {
	hostname := Hostname(host)
	if hostname == "" {
		hostname = "localhost"
	}
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return "http://" + net.JoinHostPort(hostname, strconv.Itoa(port)) + strings.TrimRight(path, "/")
}

func StaticBaseURL(url string) BaseURLResolver {
	url = strings.TrimRight(url, "/")
	return func(context.Context) string {
		return url
	}
}

func HostBaseURL(port int, path string) BaseURLResolver {
	return func(ctx context.Context) string {
		return ResolveBaseURL(HostFromContext(ctx), port, path)
	}
}
