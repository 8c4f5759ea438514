// Package update drives one hosts file refresh: load both documents, diff
// them, show the operator what will change, confirm, merge and write with a
// backup.
package update

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/dean-jl/hostsync/internal/backup"
	"github.com/dean-jl/hostsync/internal/hosts"
	"github.com/dean-jl/hostsync/internal/ui"
)

// State is a step of the update lifecycle.
type State int

const (
	Idle State = iota
	Loaded
	Diffed
	Confirmed
	Merged
	Written
	Done
	Aborted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loaded:
		return "loaded"
	case Diffed:
		return "diffed"
	case Confirmed:
		return "confirmed"
	case Merged:
		return "merged"
	case Written:
		return "written"
	case Done:
		return "done"
	case Aborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// BackupWriter writes a file only after a backup of it exists.
type BackupWriter interface {
	WriteWithBackup(path string, content []byte) (*backup.Record, error)
}

// Config contains configuration for the Updater.
type Config struct {
	HostsPath string
	Source    string
	Program   string   // written into the generated-by header
	Exclude   []string // hostnames never touched, on top of the reserved ones
	Force     bool     // apply without asking
	DryRun    bool     // stop after the summary

	Fetcher   hosts.Fetcher
	Backups   BackupWriter
	Confirmer ui.Confirmer
	Out       io.Writer
	Logger    *slog.Logger
}

// Report describes how a run ended.
type Report struct {
	State      State
	Diff       *hosts.Diff
	LastUpdate string
	Warnings   []string
	Backup     *backup.Record
	Declined   bool
	DryRun     bool
}

// Changed reports whether the hosts file was rewritten.
func (r *Report) Changed() bool {
	return r.Backup != nil && r.State == Done && !r.Declined && !r.DryRun
}

// Updater runs the update lifecycle once per Run call.
type Updater struct {
	config Config
	logger *slog.Logger
}

// NewUpdater creates a new Updater with the given configuration.
func NewUpdater(config Config) *Updater {
	if config.Out == nil {
		config.Out = io.Discard
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if config.Backups == nil {
		config.Backups = backup.NewManager(backup.ManagerConfig{Logger: config.Logger})
	}
	return &Updater{config: config, logger: config.Logger}
}

func (u *Updater) transition(report *Report, to State) {
	u.logger.Debug("update state", "from", report.State, "to", to)
	report.State = to
}

func (u *Updater) abort(report *Report, err error) (*Report, error) {
	u.logger.Error("update aborted", "state", report.State, "error", err)
	report.State = Aborted
	return report, err
}

// Run loads the local and remote documents, computes what the remote would
// add or change, and applies it after confirmation. An empty diff, a dry run
// or a declined confirmation end in Done without touching the hosts file.
// Any failure ends in Aborted and is returned.
func (u *Updater) Run(ctx context.Context) (*Report, error) {
	report := &Report{State: Idle, DryRun: u.config.DryRun}

	local := hosts.NewDocument(u.config.HostsPath)
	if err := local.Parse(ctx, u.config.Fetcher); err != nil {
		return u.abort(report, fmt.Errorf("failed to load hosts file: %w", err))
	}
	u.logger.Debug("local hosts loaded", "path", u.config.HostsPath, "entries", local.Entries.Len())

	remote := hosts.NewDocument(u.config.Source)
	if err := remote.Parse(ctx, u.config.Fetcher); err != nil {
		return u.abort(report, fmt.Errorf("failed to load remote hosts: %w", err))
	}
	u.logger.Debug("remote hosts loaded", "source", u.config.Source, "entries", remote.Entries.Len())
	report.LastUpdate = hosts.LastUpdate(remote.Comments)
	u.transition(report, Loaded)

	diff := hosts.Compute(local, remote, u.config.Exclude...)
	report.Diff = diff
	u.transition(report, Diffed)
	u.logger.Info("diff computed",
		"additions", diff.Additions.Len(),
		"modifications", diff.Modifications.Len(),
		"last_update", report.LastUpdate)

	if diff.Empty() {
		fmt.Fprintln(u.config.Out, ui.RenderInfoLine("hosts file is up to date"))
		u.transition(report, Done)
		return report, nil
	}

	report.Warnings = incomingWarnings(diff)
	summary := ui.Summary{
		Source:     u.config.Source,
		LastUpdate: report.LastUpdate,
		Diff:       diff,
		Warnings:   report.Warnings,
	}
	if err := ui.WriteSummary(u.config.Out, summary); err != nil {
		return u.abort(report, fmt.Errorf("failed to write summary: %w", err))
	}

	if u.config.DryRun {
		u.transition(report, Done)
		return report, nil
	}

	if !u.config.Force {
		if u.config.Confirmer == nil {
			return u.abort(report, fmt.Errorf("no confirmation provider configured"))
		}
		ok, err := u.config.Confirmer.Confirm(ctx, summary)
		if err != nil {
			return u.abort(report, fmt.Errorf("confirmation failed: %w", err))
		}
		if !ok {
			u.logger.Info("changes declined")
			report.Declined = true
			u.transition(report, Done)
			return report, nil
		}
	}
	u.transition(report, Confirmed)

	hosts.Merge(local, diff)
	u.transition(report, Merged)

	content := hosts.Render(hosts.Header{
		Program:    u.config.Program,
		Source:     u.config.Source,
		LastUpdate: report.LastUpdate,
	}, remote.Comments, local.Entries)

	rec, err := u.config.Backups.WriteWithBackup(u.config.HostsPath, content)
	report.Backup = rec
	if err != nil {
		return u.abort(report, err)
	}
	u.transition(report, Written)

	u.transition(report, Done)
	return report, nil
}

// incomingWarnings validates only the entries the diff would write.
func incomingWarnings(diff *hosts.Diff) []string {
	incoming := diff.Additions.Clone()
	diff.Modifications.ForEach(func(host string, c hosts.Change) {
		incoming.Set(host, c.New)
	})
	return hosts.Validate(incoming).Warnings
}
