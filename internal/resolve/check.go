package resolve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/netip"
	"strings"
	"sync"

	"github.com/dean-jl/hostsync/internal/hosts"
	"github.com/samber/lo"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Status is the outcome of checking one entry.
type Status int

const (
	StatusMatch      Status = iota // pinned address is among the live ones
	StatusDrift                    // name resolves, but not to the pinned address
	StatusUnresolved               // lookup failed or the name does not exist
	StatusSkipped                  // nothing meaningful to compare
)

func (s Status) String() string {
	switch s {
	case StatusMatch:
		return "ok"
	case StatusDrift:
		return "drift"
	case StatusUnresolved:
		return "unresolved"
	case StatusSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result is the check outcome for one hosts entry.
type Result struct {
	Host   string
	Pinned string
	Live   []netip.Addr
	Status Status
	Reason string
}

// CheckConfig contains configuration for Check.
type CheckConfig struct {
	Workers int           // concurrent lookups; 5 when zero
	Limiter *rate.Limiter // paces lookups; 10/s when nil
	Logger  *slog.Logger
}

// Check resolves every entry and compares the pinned address with live DNS.
// Results come back in entry order. Reserved names, unspecified addresses
// (0.0.0.0 style blocks) and entries that are not IP literals are skipped.
func Check(ctx context.Context, entries *hosts.OrderedMap[string, string], r Resolver, config CheckConfig) ([]Result, error) {
	if config.Workers <= 0 {
		config.Workers = 5
	}
	if config.Limiter == nil {
		config.Limiter = rate.NewLimiter(rate.Limit(10), 1)
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	results := make([]Result, entries.Len())
	sem := semaphore.NewWeighted(int64(config.Workers))
	var wg sync.WaitGroup
	var acquireErr error

	i := 0
	entries.ForEach(func(host, pinned string) {
		idx := i
		i++
		results[idx] = Result{Host: host, Pinned: pinned}

		pinnedAddr, reason, ok := checkable(host, pinned)
		if !ok {
			results[idx].Status = StatusSkipped
			results[idx].Reason = reason
			return
		}
		if acquireErr != nil {
			results[idx].Status = StatusUnresolved
			results[idx].Reason = acquireErr.Error()
			return
		}

		// Acquire semaphore token (blocks if max workers reached)
		if err := sem.Acquire(ctx, 1); err != nil {
			acquireErr = err
			results[idx].Status = StatusUnresolved
			results[idx].Reason = err.Error()
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			results[idx] = checkOne(ctx, r, config, host, pinned, pinnedAddr)
		}()
	})
	wg.Wait()

	if acquireErr != nil {
		return results, fmt.Errorf("check interrupted: %w", acquireErr)
	}
	return results, nil
}

func checkable(host, pinned string) (netip.Addr, string, bool) {
	if lo.Contains(hosts.ReservedHostnames, host) {
		return netip.Addr{}, "reserved hostname", false
	}
	if strings.ContainsAny(host, " \t") {
		return netip.Addr{}, "several names on one line", false
	}
	addr, err := netip.ParseAddr(pinned)
	if err != nil {
		return netip.Addr{}, "address is not an IP literal", false
	}
	addr = addr.Unmap()
	if addr.IsUnspecified() || addr.IsLoopback() {
		return netip.Addr{}, "blocked or loopback address", false
	}
	return addr, "", true
}

func checkOne(ctx context.Context, r Resolver, config CheckConfig, host, pinned string, pinnedAddr netip.Addr) Result {
	res := Result{Host: host, Pinned: pinned}
	if err := config.Limiter.Wait(ctx); err != nil {
		res.Status = StatusUnresolved
		res.Reason = err.Error()
		return res
	}

	live, err := r.LookupAddrs(ctx, host)
	if err != nil {
		config.Logger.Debug("lookup failed", "host", host, "error", err)
		res.Status = StatusUnresolved
		res.Reason = err.Error()
		if errors.Is(err, ErrNotFound) {
			res.Reason = "name does not exist"
		}
		return res
	}
	res.Live = live

	switch {
	case len(live) == 0:
		res.Status = StatusUnresolved
		res.Reason = "no addresses"
	case lo.Contains(live, pinnedAddr):
		res.Status = StatusMatch
	default:
		res.Status = StatusDrift
	}
	config.Logger.Debug("entry checked", "host", host, "pinned", pinned, "status", res.Status)
	return res
}

// Summarize counts results per status.
func Summarize(results []Result) map[Status]int {
	counts := make(map[Status]int)
	for _, r := range results {
		counts[r.Status]++
	}
	return counts
}
