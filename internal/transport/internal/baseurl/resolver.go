// Package baseurl derives the externally visible scheme://host of an inbound
// request, honoring the headers set by TLS-terminating reverse proxies.
package baseurl

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/jamesprial/todo-mcp-auth/pkg/oauth"
)

// Sources reported for each resolved component.
const (
	SourceHeader    = "header"
	SourceTLS       = "tls"
	SourceLocalAddr = "local_addr"
	SourceConfig    = "config"
	SourceDefault   = "default"
)

const defaultHost = "localhost"

// Resolved is the outcome of resolving one request.
type Resolved struct {
	Scheme       string
	SchemeSource string
	Host         string
	HostSource   string
}

// String returns {scheme}://{host}.
func (r Resolved) String() string {
	return r.Scheme + "://" + r.Host
}

// Resolver resolves request base URLs. The zero value is usable.
type Resolver struct {
	// ForwardedProtoHeader defaults to X-Forwarded-Proto.
	ForwardedProtoHeader string

	// ServerName replaces the bound host when no Host header is present.
	ServerName string

	// ServerPort is used with ServerName when the bound address is unknown.
	ServerPort int

	// Logger receives one debug event per resolution. Nil uses slog.Default().
	Logger *slog.Logger
}

// BaseURL returns the resolved base URL for r.
func (res *Resolver) BaseURL(r *http.Request) string {
	return res.Resolve(r).String()
}

// Resolve never fails. Missing or unusable inputs fall through to the next
// source in precedence order.
//
// The forwarded-proto header is not used whole. Only its first
// comma-separated element is read, trimmed of spaces, and it must be a valid
// URI scheme (RFC 3986 section 3.1) to be used verbatim. Otherwise the scheme
// comes from the connection: https for TLS, else http. Later elements are
// never consulted.
func (res *Resolver) Resolve(r *http.Request) Resolved {
	var out Resolved
	out.Scheme, out.SchemeSource = res.scheme(r)
	out.Host, out.HostSource = res.host(r)

	res.logger().LogAttrs(r.Context(), slog.LevelDebug, "resolved base url",
		slog.String("scheme", out.Scheme),
		slog.String("scheme_source", out.SchemeSource),
		slog.String("host", out.Host),
		slog.String("host_source", out.HostSource),
		slog.String("base_url", out.String()),
	)

	return out
}

func (res *Resolver) logger() *slog.Logger {
	if res.Logger != nil {
		return res.Logger
	}
	return slog.Default()
}

func (res *Resolver) scheme(r *http.Request) (string, string) {
	header := res.ForwardedProtoHeader
	if header == "" {
		header = oauth.HeaderForwardedProto
	}

	// Proxy chains append, so the first element is the client-facing scheme.
	value := r.Header.Get(header)
	if i := strings.IndexByte(value, ','); i >= 0 {
		value = value[:i]
	}
	value = strings.TrimSpace(value)
	if isScheme(value) {
		return value, SourceHeader
	}

	if r.TLS != nil {
		return "https", SourceTLS
	}
	return "http", SourceDefault
}

func (res *Resolver) host(r *http.Request) (string, string) {
	if r.Host != "" {
		return r.Host, SourceHeader
	}

	if host, port, ok := localAddr(r.Context()); ok {
		if res.ServerName != "" {
			host = res.ServerName
		}
		return withPort(host, port), SourceLocalAddr
	}

	if res.ServerName != "" {
		return withPort(res.ServerName, res.ServerPort), SourceConfig
	}
	return withPort(defaultHost, res.ServerPort), SourceDefault
}

func localAddr(ctx context.Context) (string, int, bool) {
	addr, ok := ctx.Value(http.LocalAddrContextKey).(net.Addr)
	if !ok || addr == nil {
		return "", 0, false
	}
	host, portStr, err := net.SplitHostPort(addr.String())
	if err != nil || host == "" {
		return "", 0, false
	}
	port, _ := strconv.Atoi(portStr)
	return host, port, true
}

// withPort appends the port unless it is 80, 443 or unknown. The scheme is
// not consulted.
func withPort(host string, port int) string {
	if port <= 0 || port == 80 || port == 443 {
		if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
			return "[" + host + "]"
		}
		return host
	}
	return net.JoinHostPort(strings.Trim(host, "[]"), strconv.Itoa(port))
}

// isScheme reports whether s matches ALPHA *( ALPHA / DIGIT / "+" / "-" / "." ).
func isScheme(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case i > 0 && ('0' <= c && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return true
}
