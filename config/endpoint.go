package config

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strconv"

	"tick2trade/codec"
)

// Endpoint is one venue websocket.
type Endpoint struct {
	URL    string `yaml:"url" toml:"url"`
	Symbol string `yaml:"symbol" toml:"symbol"`
	Depth  int    `yaml:"depth" toml:"depth"`

	host string
	port uint16
	path string
	addr netip.AddrPort
}

func (e *Endpoint) parse(name string) error {
	u, err := url.Parse(e.URL)
	if err != nil {
		return fmt.Errorf("%s.url: %w", name, err)
	}
	if u.Scheme != "wss" {
		return fmt.Errorf("%s.url must use wss, got %q", name, u.Scheme)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("%s.url has no host", name)
	}
	e.host = u.Hostname()
	e.port = 443
	if p := u.Port(); p != "" {
		n, err := strconv.ParseUint(p, 10, 16)
		if err != nil || n == 0 {
			return fmt.Errorf("%s.url: bad port %q", name, p)
		}
		e.port = uint16(n)
	}
	e.path = u.RequestURI()
	if ip, err := netip.ParseAddr(e.host); err == nil {
		e.addr = netip.AddrPortFrom(ip, e.port)
	}
	return nil
}

// Host is the TLS server name and the HTTP Host header.
func (e *Endpoint) Host() string { return e.host }

// Path is the upgrade request target.
func (e *Endpoint) Path() string { return e.path }

// Addr is the resolved socket address; valid after Resolve.
func (e *Endpoint) Addr() netip.AddrPort { return e.addr }

// Topic is the depth subscription topic for a market endpoint.
func (e *Endpoint) Topic() string { return codec.DepthTopic(e.Depth, e.Symbol) }

// Resolve looks up the endpoint host. Literal addresses need no lookup.
func (e *Endpoint) Resolve(ctx context.Context, r *net.Resolver) error {
	if e.addr.IsValid() {
		return nil
	}
	ips, err := r.LookupNetIP(ctx, "ip4", e.host)
	if err != nil {
		return fmt.Errorf("config: resolve %s: %w", e.host, err)
	}
	if len(ips) == 0 {
		return fmt.Errorf("config: resolve %s: no address", e.host)
	}
	e.addr = netip.AddrPortFrom(ips[0].Unmap(), e.port)
	return nil
}

// Resolve resolves every endpoint.
func (c *Config) Resolve(ctx context.Context) error {
	for _, e := range []*Endpoint{&c.MarketA, &c.MarketB, &c.Trade} {
		if err := e.Resolve(ctx, net.DefaultResolver); err != nil {
			return err
		}
	}
	return nil
}
