package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dean-jl/hostsync/internal/ui"
	"github.com/spf13/cobra"
)

func newBackupsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "backups",
		Short: "List backups of the hosts file, newest first.",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := processConfig(cmd)
			if err != nil {
				return err
			}
			logger, closer := setupLogger(cfg)
			defer closer.Close()

			manager := newBackupManager(cfg, logger)
			records, err := manager.List(filepath.Base(cfg.HostsFile))
			if err != nil {
				return err
			}
			debugPrintlnf("[DEBUG] Found %d backups in %s\n", len(records), manager.Dir())

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}
			if len(records) == 0 {
				fmt.Fprintln(out, ui.RenderInfoLine("no backups in "+manager.Dir()))
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSIZE\tCREATED")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%d\t%s\n", r.Name, r.Size, r.CreatedAt.Format(time.DateTime))
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the list as JSON")
	return cmd
}

func newRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <backup-name>",
		Short: "Copy a backup over the hosts file. The current file is backed up first.",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return &usageError{fmt.Errorf("restore takes exactly one backup name, got %d", len(args))}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := processConfig(cmd)
			if err != nil {
				return err
			}
			logger, closer := setupLogger(cfg)
			defer closer.Close()

			manager := newBackupManager(cfg, logger)
			undo, err := manager.Restore(args[0], cfg.HostsFile)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.RenderOkLine(fmt.Sprintf("restored %s from %s, previous content saved as %s",
				cfg.HostsFile, args[0], undo.Name)))
			return nil
		},
	}
}
