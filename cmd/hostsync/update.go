package main

import (
	"fmt"
	"os"

	"github.com/dean-jl/hostsync/internal/ui"
	"github.com/dean-jl/hostsync/internal/update"
	"github.com/spf13/cobra"
)

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff",
		Short: "Show what an update would add or change without touching the hosts file.",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd, true)
		},
	}
}

func confirmerFor(cmd *cobra.Command) ui.Confirmer {
	if f, ok := cmd.InOrStdin().(*os.File); ok {
		return ui.NewConfirmer(f, cmd.OutOrStdout())
	}
	return ui.LineConfirmer{In: cmd.InOrStdin(), Out: cmd.OutOrStdout()}
}

func runUpdate(cmd *cobra.Command, dryRun bool) error {
	cfg, err := processConfig(cmd)
	if err != nil {
		return err
	}
	logger, closer := setupLogger(cfg)
	defer closer.Close()
	printStatusMessages()

	out := cmd.OutOrStdout()
	verbosePrintlnf("[VERBOSE] Updating %s from %s\n", cfg.HostsFile, cfg.Source)

	updater := update.NewUpdater(update.Config{
		HostsPath: cfg.HostsFile,
		Source:    cfg.Source,
		Program:   programPath(),
		Exclude:   cfg.Exclude,
		Force:     cliConfig.Force,
		DryRun:    dryRun,
		Fetcher:   newFetchClient(cfg, logger),
		Backups:   newBackupManager(cfg, logger),
		Confirmer: confirmerFor(cmd),
		Out:       out,
		Logger:    logger,
	})

	report, err := updater.Run(cmd.Context())
	if err != nil {
		if report != nil && report.Backup != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), ui.RenderInfoLine("backup kept at "+report.Backup.Path))
		}
		return err
	}

	debugPrintlnf("[DEBUG] Update finished in state %s\n", report.State)
	switch {
	case report.Changed():
		fmt.Fprintln(out, ui.RenderOkLine(fmt.Sprintf("%s updated (%d added, %d modified), backup saved to %s",
			cfg.HostsFile, report.Diff.Additions.Len(), report.Diff.Modifications.Len(), report.Backup.Path)))
	case report.DryRun && !report.Diff.Empty():
		fmt.Fprintln(out, ui.RenderInfoLine("dry run, no changes applied"))
	case report.Declined:
		fmt.Fprintln(out, ui.RenderInfoLine("no changes applied"))
	}
	return nil
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return &usageError{fmt.Errorf("%s takes no arguments", cmd.Name())}
	}
	return nil
}
