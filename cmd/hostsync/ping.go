package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dean-jl/hostsync/internal/hosts"
	"github.com/spf13/cobra"
)

func newPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the remote hosts list can be fetched and parsed.",
		Long: `Fetch the configured remote hosts list once and report how many entries it holds
and when it was last updated. Nothing is written.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := processConfig(cmd)
			if err != nil {
				return err
			}
			logger, closer := setupLogger(cfg)
			defer closer.Close()
			printStatusMessages()

			startTime := time.Now()
			debugPrintlnf("[DEBUG] Starting ping command at %v\n", startTime)

			client := newFetchClient(cfg, logger)
			doc := hosts.NewDocument(cfg.Source)
			if err := doc.Parse(cmd.Context(), client); err != nil {
				return err
			}
			elapsed := time.Since(startTime)

			lastUpdate := hosts.LastUpdate(doc.Comments)
			if lastUpdate == "" {
				lastUpdate = hosts.UnknownUpdate
			}

			var outputBuilder strings.Builder
			outputBuilder.WriteString(fmt.Sprintf("Source: %s\n", cfg.Source))
			outputBuilder.WriteString(fmt.Sprintf("  Entries: %d\n", doc.Entries.Len()))
			outputBuilder.WriteString(fmt.Sprintf("  Comment lines: %d\n", len(doc.Comments)))
			outputBuilder.WriteString(fmt.Sprintf("  Last update: %s\n", lastUpdate))
			outputBuilder.WriteString(fmt.Sprintf("  Fetched in: %v\n", elapsed.Round(time.Millisecond)))
			if warnings := hosts.Validate(doc.Entries).Warnings; len(warnings) > 0 {
				outputBuilder.WriteString(fmt.Sprintf("  Warnings: %d\n", len(warnings)))
				for _, w := range warnings {
					verbosePrintlnf("[VERBOSE] %s\n", w)
				}
			}
			verbosePrintlnf("[VERBOSE] HTTP sessions opened: %d\n", client.Sessions().Len())

			fmt.Fprint(cmd.OutOrStdout(), outputBuilder.String())
			return nil
		},
	}
}
