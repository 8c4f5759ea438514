// Package resolve looks up the live DNS addresses of hosts entries so pinned
// addresses that have drifted can be reported.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/miekg/dns"
)

// ErrNotFound is returned when a name does not exist in DNS.
var ErrNotFound = errors.New("name not found")

// Resolver abstracts address lookups so the drift check can use the system
// resolver, specific DNS servers, or canned answers in tests.
type Resolver interface {
	LookupAddrs(ctx context.Context, host string) ([]netip.Addr, error)
	Close() error
}

// SystemResolver uses Go's net package for lookups.
type SystemResolver struct{}

func (SystemResolver) LookupAddrs(ctx context.Context, host string) ([]netip.Addr, error) {
	addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, host)
		}
		return nil, err
	}
	out := make([]netip.Addr, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.Unmap())
	}
	return out, nil
}

func (SystemResolver) Close() error {
	return nil
}

// DNSResolver queries A and AAAA records from the given servers in order,
// stopping at the first server that answers.
type DNSResolver struct {
	Servers []string // host:port of each server
	client  *dns.Client
}

// NewDNSResolver creates a DNSResolver with a reusable client. Servers
// given without a port use 53.
func NewDNSResolver(servers []string, timeout time.Duration) *DNSResolver {
	addrs := make([]string, 0, len(servers))
	for _, s := range servers {
		if _, _, err := net.SplitHostPort(s); err != nil {
			s = net.JoinHostPort(s, "53")
		}
		addrs = append(addrs, s)
	}
	client := &dns.Client{}
	if timeout > 0 {
		client.Timeout = timeout
	}
	return &DNSResolver{Servers: addrs, client: client}
}

func (r *DNSResolver) LookupAddrs(ctx context.Context, host string) ([]netip.Addr, error) {
	if len(r.Servers) == 0 {
		return nil, errors.New("no DNS servers configured")
	}

	var lastErr error
	for _, server := range r.Servers {
		addrs, err := r.query(ctx, server, host)
		if err == nil || errors.Is(err, ErrNotFound) {
			return addrs, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
	}
	return nil, fmt.Errorf("no DNS server answered for %s: %w", host, lastErr)
}

// query asks one server for both address families.
func (r *DNSResolver) query(ctx context.Context, server, host string) ([]netip.Addr, error) {
	var results []netip.Addr
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		m := new(dns.Msg)
		m.SetQuestion(dns.Fqdn(host), qtype)
		resp, _, err := r.client.ExchangeContext(ctx, m, server)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", server, err)
		}
		switch resp.Rcode {
		case dns.RcodeSuccess:
		case dns.RcodeNameError:
			return nil, fmt.Errorf("%w: %s", ErrNotFound, host)
		default:
			return nil, fmt.Errorf("%s: %s", server, dns.RcodeToString[resp.Rcode])
		}
		for _, ans := range resp.Answer {
			var ip net.IP
			switch rr := ans.(type) {
			case *dns.A:
				ip = rr.A
			case *dns.AAAA:
				ip = rr.AAAA
			default:
				continue
			}
			if addr, ok := netip.AddrFromSlice(ip); ok {
				results = append(results, addr.Unmap())
			}
		}
	}
	return results, nil
}

func (r *DNSResolver) Close() error {
	return nil
}
