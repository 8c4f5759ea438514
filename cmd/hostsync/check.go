package main

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/dean-jl/hostsync/internal/hosts"
	"github.com/dean-jl/hostsync/internal/resolve"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

func newCheckCmd() *cobra.Command {
	var (
		workers     int
		qps         float64
		remote      bool
		failOnDrift bool
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Compare pinned hosts entries with live DNS.",
		Long: `Resolve every hosts entry through the system resolver, or the DNS servers listed
in the configuration, and report entries whose pinned address is not among the
live addresses. Blocked (0.0.0.0) and loopback entries are skipped.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if workers < 1 || qps <= 0 {
				return &usageError{fmt.Errorf("--workers and --qps must be positive")}
			}
			cfg, err := processConfig(cmd)
			if err != nil {
				return err
			}
			logger, closer := setupLogger(cfg)
			defer closer.Close()
			printStatusMessages()

			source := cfg.HostsFile
			if remote {
				source = cfg.Source
			}
			doc := hosts.NewDocument(source)
			if err := doc.Parse(cmd.Context(), newFetchClient(cfg, logger)); err != nil {
				return err
			}
			verbosePrintlnf("[VERBOSE] Checking %d entries from %s\n", doc.Entries.Len(), source)

			resolver := setupResolver(cfg)
			defer resolver.Close()

			results, err := resolve.Check(cmd.Context(), doc.Entries, resolver, resolve.CheckConfig{
				Workers: workers,
				Limiter: rate.NewLimiter(rate.Limit(qps), 1),
				Logger:  logger,
			})
			if err != nil {
				return err
			}

			var outputBuilder strings.Builder
			for _, r := range results {
				switch r.Status {
				case resolve.StatusDrift:
					live := lo.Map(r.Live, func(a netip.Addr, _ int) string { return a.String() })
					outputBuilder.WriteString(fmt.Sprintf("DRIFT %s: pinned %s, live %s\n", r.Host, r.Pinned, strings.Join(live, ", ")))
				case resolve.StatusUnresolved:
					outputBuilder.WriteString(fmt.Sprintf("UNRESOLVED %s: %s\n", r.Host, r.Reason))
				default:
					verbosePrintlnf("[VERBOSE] %s %s (%s) %s\n", strings.ToUpper(r.Status.String()), r.Host, r.Pinned, r.Reason)
				}
			}

			counts := resolve.Summarize(results)
			outputBuilder.WriteString("\n=== Check Summary ===\n")
			outputBuilder.WriteString(fmt.Sprintf("Total Entries: %d\n", len(results)))
			outputBuilder.WriteString(fmt.Sprintf("Matching: %d\n", counts[resolve.StatusMatch]))
			outputBuilder.WriteString(fmt.Sprintf("Drifted: %d\n", counts[resolve.StatusDrift]))
			outputBuilder.WriteString(fmt.Sprintf("Unresolved: %d\n", counts[resolve.StatusUnresolved]))
			outputBuilder.WriteString(fmt.Sprintf("Skipped: %d\n", counts[resolve.StatusSkipped]))
			fmt.Fprint(cmd.OutOrStdout(), outputBuilder.String())

			if failOnDrift && counts[resolve.StatusDrift] > 0 {
				return fmt.Errorf("%d entries have drifted from live DNS", counts[resolve.StatusDrift])
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 5, "Concurrent DNS lookups")
	cmd.Flags().Float64Var(&qps, "qps", 10, "Maximum DNS lookups per second")
	cmd.Flags().BoolVar(&remote, "remote", false, "Check the remote hosts list instead of the local file")
	cmd.Flags().BoolVar(&failOnDrift, "fail-on-drift", false, "Exit with an error when any entry has drifted")
	return cmd
}
