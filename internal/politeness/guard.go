package politeness

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"syscall"
)

// ErrBlockedHost is returned when a host resolves to an address the
// crawler must never contact.
var ErrBlockedHost = errors.New("blocked host: private, loopback or link-local address")

// Resolver looks up the addresses of a host. *net.Resolver satisfies it.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// HostGuard rejects hosts that resolve to internal addresses.
// Hosts whose lookup fails are let through; the request that follows fails
// on its own and is recorded as an http-error.
type HostGuard struct {
	resolver Resolver

	mu      sync.Mutex
	verdict map[string]error
}

// NewHostGuard creates a guard. A nil resolver uses net.DefaultResolver.
func NewHostGuard(resolver Resolver) *HostGuard {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return &HostGuard{
		resolver: resolver,
		verdict:  make(map[string]error),
	}
}

// Check returns ErrBlockedHost (wrapped with the host) when host is
// "localhost" or resolves to a blocked address. Results are cached per host.
func (g *HostGuard) Check(ctx context.Context, host string) error {
	host = strings.ToLower(strings.Trim(host, "[]"))

	g.mu.Lock()
	cached, ok := g.verdict[host]
	g.mu.Unlock()
	if ok {
		return cached
	}

	err := g.check(ctx, host)

	g.mu.Lock()
	g.verdict[host] = err
	g.mu.Unlock()
	return err
}

func (g *HostGuard) check(ctx context.Context, host string) error {
	if host == "" {
		return nil
	}
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return fmt.Errorf("%w: %s", ErrBlockedHost, host)
	}
	if ip := net.ParseIP(host); ip != nil {
		if IsBlockedIP(ip) {
			return fmt.Errorf("%w: %s", ErrBlockedHost, host)
		}
		return nil
	}

	addrs, err := g.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil
	}
	for _, addr := range addrs {
		if IsBlockedIP(addr.IP) {
			return fmt.Errorf("%w: %s resolves to %s", ErrBlockedHost, host, addr.IP)
		}
	}
	return nil
}

// IsBlockedIP reports whether ip is private, loopback, link-local or unspecified.
func IsBlockedIP(ip net.IP) bool {
	return ip.IsPrivate() ||
		ip.IsLoopback() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified()
}

// DialControl is a net.Dialer Control hook that refuses connections to
// blocked addresses. It closes the gap between the guard's lookup and the
// actual connect when a name re-resolves to an internal address.
func DialControl(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	if ip := net.ParseIP(host); ip != nil && IsBlockedIP(ip) {
		return fmt.Errorf("%w: %s", ErrBlockedHost, host)
	}
	return nil
}
