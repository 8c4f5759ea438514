package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dean-jl/hostsync/internal/config"
	"github.com/spf13/cobra"
)

// CLIConfig holds CLI flag values
type CLIConfig struct {
	ConfigPath string
	Debug      bool
	Verbose    bool
	Force      bool
	Insecure   bool
	HostsFile  string
	Source     string
	BackupDir  string
	WriteMode  string
}

var cliConfig = &CLIConfig{}

// usageError marks command line mistakes, which exit with status 2.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

const usageLine = "Usage: hostsync [-f|--force] [--config file] [command]"

func newRootCmd() *cobra.Command {
	*cliConfig = CLIConfig{}

	rootCmd := &cobra.Command{
		Use:   "hostsync",
		Short: "hostsync keeps the local hosts file in sync with a remote hosts list.",
		Long: `Fetch a remote hosts list, show which entries would be added or changed in the
local hosts file, and apply them after confirmation. The hosts file is backed up
before it is rewritten and restored if the write fails. Entries that only exist
locally are never removed.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return &usageError{fmt.Errorf("unknown command %q", args[0])}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd, false)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cliConfig.ConfigPath, "config", config.DefaultFile, "Path to configuration file")
	flags.BoolVar(&cliConfig.Debug, "debug", false, "Enable debug output")
	flags.BoolVar(&cliConfig.Verbose, "verbose", false, "Enable verbose output")
	flags.BoolVar(&cliConfig.Insecure, "insecure", false, "Skip TLS certificate verification for the remote source")
	flags.StringVar(&cliConfig.HostsFile, "hosts-file", "", "Local hosts file (default: the system hosts file)")
	flags.StringVar(&cliConfig.Source, "source", "", "Remote hosts list URL")
	flags.StringVar(&cliConfig.BackupDir, "backup-dir", "", "Directory for hosts file backups")
	flags.StringVar(&cliConfig.WriteMode, "write-mode", "", "How the hosts file is rewritten: inplace or atomic")
	rootCmd.Flags().BoolVarP(&cliConfig.Force, "force", "f", false, "Apply changes without asking for confirmation")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err}
	})

	rootCmd.AddCommand(newDiffCmd())
	rootCmd.AddCommand(newPingCmd())
	rootCmd.AddCommand(newBackupsCmd())
	rootCmd.AddCommand(newRestoreCmd())
	rootCmd.AddCommand(newCheckCmd())

	rootCmd.Version = config.Version
	rootCmd.SetHelpTemplate("hostsync v" + config.Version + "\n\n{{.Long}}\n\nUsage:\n  {{.UseLine}}\n\nAvailable Commands:\n{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name \"help\"))}}  {{rpad .Name .NamePadding }} {{.Short}}\n{{end}}{{end}}\n\nFlags:\n{{.Flags.FlagUsages | trimTrailingWhitespaces}}\n\nUse \"{{.UseLine}} [command] --help\" for more information about a command.\n")
	return rootCmd
}

// execute runs the command line and returns the process exit status.
func execute(ctx context.Context, args []string, in io.Reader, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetIn(in)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var uerr *usageError
	if errors.As(err, &uerr) {
		fmt.Fprintf(stderr, "%s (%v)\n", usageLine, uerr.err)
		return 2
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func debugPrintln(a ...interface{}) {
	if cliConfig.Debug {
		fmt.Println(a...)
	}
}

// verbosePrintln prints verbose messages when verbose mode is enabled
func verbosePrintln(a ...interface{}) {
	if cliConfig.Verbose {
		fmt.Println(a...)
	}
}

// verbosePrintlnf prints formatted verbose messages when verbose mode is enabled
func verbosePrintlnf(format string, a ...interface{}) {
	if cliConfig.Verbose {
		fmt.Printf(format, a...)
	}
}

// debugPrintlnf prints formatted debug messages when debug mode is enabled
func debugPrintlnf(format string, a ...interface{}) {
	if cliConfig.Debug {
		fmt.Printf(format, a...)
	}
}

func main() {
	Execute()
}
