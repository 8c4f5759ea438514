package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dean-jl/hostsync/internal/backup"
	"github.com/dean-jl/hostsync/internal/config"
	"github.com/dean-jl/hostsync/internal/fetch"
	"github.com/dean-jl/hostsync/internal/resolve"
	"github.com/rs/zerolog"
	slogzerolog "github.com/samber/slog-zerolog/v2"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"golang.org/x/time/rate"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logMaxSizeMB     = 16
	logRetentionDays = 28
)

// processConfig loads the configuration file and applies flag overrides. A
// missing default file falls back to built-in defaults; a file named with
// --config must exist.
func processConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if cmd.Flags().Changed("config") {
		cfg, err = config.LoadConfig(cliConfig.ConfigPath)
	} else {
		cfg, err = config.LoadOrDefault(cliConfig.ConfigPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config at %s: %w", cliConfig.ConfigPath, err)
	}

	if cliConfig.HostsFile != "" {
		cfg.HostsFile = cliConfig.HostsFile
	}
	if cliConfig.Source != "" {
		cfg.Source = cliConfig.Source
	}
	if cliConfig.BackupDir != "" {
		cfg.BackupDir = cliConfig.BackupDir
	}
	if cliConfig.WriteMode != "" {
		cfg.WriteMode = cliConfig.WriteMode
	}
	if cliConfig.Insecure {
		cfg.InsecureSkipVerify = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, &usageError{fmt.Errorf("invalid settings: %w", err)}
	}

	debugPrintlnf("[DEBUG] Config: source=%s hosts_file=%s backup_dir=%s write_mode=%s\n",
		cfg.Source, cfg.HostsFile, cfg.BackupDir, cfg.WriteMode)
	return cfg, nil
}

// setupLogger returns a slog logger backed by zerolog. Debug mode writes a
// console log to stderr; a configured log file receives JSON lines through a
// rotating writer. With neither, logs are discarded.
func setupLogger(cfg *config.Config) (*slog.Logger, io.Closer) {
	var (
		writers []io.Writer
		closer  io.Closer = io.NopCloser(nil)
	)
	level := slog.LevelInfo
	if cliConfig.Debug {
		level = slog.LevelDebug
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.Kitchen,
			NoColor:    !term.IsTerminal(int(os.Stderr.Fd())),
		})
	}
	if cfg.LogFile != "" {
		file := &lumberjack.Logger{
			Filename: cfg.LogFile,
			MaxSize:  logMaxSizeMB,
			MaxAge:   logRetentionDays,
		}
		writers = append(writers, file)
		closer = file
	}

	zl := zerolog.Nop()
	if len(writers) > 0 {
		zl = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	}
	return slog.New(slogzerolog.Option{Level: level, Logger: &zl}.NewZerologHandler()), closer
}

func printStatusMessages() {
	verbosePrintln("[VERBOSE] Verbose output enabled.")
	debugPrintln("[DEBUG] Debug output enabled.")
}

func newFetchClient(cfg *config.Config, logger *slog.Logger) *fetch.Client {
	if cfg.InsecureSkipVerify {
		verbosePrintln("[VERBOSE] TLS certificate verification is disabled.")
	}
	return fetch.NewClient(fetch.ClientConfig{
		UserAgent:          cfg.UserAgent,
		Timeout:            cfg.Timeout,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		Logger:             logger,
		RetryCount:         cfg.Retry.Attempts,
		RetryDelay:         cfg.Retry.Delay,
		MaxRetryDelay:      cfg.Retry.MaxDelay,
		JitterEnabled:      true,
		RateLimiter:        rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
	})
}

func newBackupManager(cfg *config.Config, logger *slog.Logger) *backup.Manager {
	return backup.NewManager(backup.ManagerConfig{
		Dir:    cfg.BackupDir,
		Logger: logger,
		Mode:   backup.WriteMode(cfg.WriteMode),
	})
}

func setupResolver(cfg *config.Config) resolve.Resolver {
	if len(cfg.DNSServers) > 0 {
		verbosePrintln("[VERBOSE] DNS servers being used:")
		for i, s := range cfg.DNSServers {
			verbosePrintlnf("  - %s (%s)\n", s.Name, s.IP)
			debugPrintlnf("[DEBUG] DNS server %d: %s -> %s\n", i+1, s.Name, s.IP)
		}
		return resolve.NewDNSResolver(cfg.DNSAddrs(), cfg.Timeout)
	}

	verbosePrintln("[VERBOSE] Using system DNS resolver.")
	return resolve.SystemResolver{}
}

// programPath is the absolute path written into the generated-by header.
func programPath() string {
	if exe, err := os.Executable(); err == nil {
		return exe
	}
	if abs, err := filepath.Abs(os.Args[0]); err == nil {
		return abs
	}
	return os.Args[0]
}
