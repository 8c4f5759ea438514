package backup

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	atomicfile "github.com/natefinch/atomic"
)

// maxNameAttempts bounds the "-N" suffixes tried when several backups are
// taken within the same second.
const maxNameAttempts = 1000

// WriteFunc overwrites the file at path with content.
type WriteFunc func(path string, content []byte) error

// Manager takes backups of a live file before overwriting it and restores
// them when the write fails.
type Manager struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
	write  WriteFunc
}

// ManagerConfig contains configuration for the Manager.
type ManagerConfig struct {
	Dir    string
	Logger *slog.Logger
	Mode   WriteMode
	Now    func() time.Time // clock used for backup names; time.Now when nil
	Writer WriteFunc        // overrides Mode when set
}

// NewManager creates a new Manager with the given configuration.
func NewManager(config ManagerConfig) *Manager {
	if config.Dir == "" {
		config.Dir = filepath.Join(os.TempDir(), "hostsync")
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.Writer == nil {
		switch config.Mode {
		case WriteAtomic:
			config.Writer = writeAtomic
		default:
			config.Writer = writeInPlace
		}
	}
	return &Manager{
		dir:    config.Dir,
		logger: config.Logger,
		now:    config.Now,
		write:  config.Writer,
	}
}

// Dir returns the backup directory.
func (m *Manager) Dir() string {
	return m.dir
}

// WriteWithBackup backs up the file at path and then overwrites it with
// content. The live file is not opened for writing until the backup copy has
// been synced to disk. If the write fails the backup is copied back; a failed
// rollback is reported alongside the write error. The backup is kept in every
// case and its record is returned whenever it was created.
func (m *Manager) WriteWithBackup(path string, content []byte) (*Record, error) {
	rec, err := m.Backup(path)
	if err != nil {
		return nil, err
	}

	if err := m.write(path, content); err != nil {
		writeErr := fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
		m.logger.Error("write failed, rolling back", "path", path, "backup", rec.Path, "error", err)

		if rbErr := copyOver(path, rec.Path); rbErr != nil {
			m.logger.Error("rollback failed", "path", path, "backup", rec.Path, "error", rbErr)
			return rec, errors.Join(writeErr,
				fmt.Errorf("%w: restoring %s from %s: %w", ErrRollback, path, rec.Path, rbErr))
		}
		m.logger.Info("rolled back", "path", path, "backup", rec.Path)
		return rec, writeErr
	}

	m.logger.Info("file updated", "path", path, "bytes", len(content), "backup", rec.Path)
	return rec, nil
}

// Backup copies the file at path into the backup directory, creating the
// directory if needed.
func (m *Manager) Backup(path string) (*Record, error) {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBackupDir, m.dir, err)
	}
	info, err := os.Stat(m.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBackupDir, m.dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrBackupDir, m.dir)
	}

	rec, err := m.copyToBackup(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBackup, path, err)
	}
	m.logger.Debug("backup created", "source", path, "backup", rec.Path, "bytes", rec.Size)
	return rec, nil
}

func (m *Manager) copyToBackup(path string) (*Record, error) {
	src, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", path)
	}

	createdAt := m.now()
	dst, name, err := m.createUnique(filepath.Base(path), createdAt, info.Mode().Perm())
	if err != nil {
		return nil, err
	}
	backupPath := filepath.Join(m.dir, name)

	n, err := io.Copy(dst, src)
	if err == nil {
		err = dst.Sync()
	}
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		// Only the incomplete copy is removed; finished backups are never touched.
		os.Remove(backupPath)
		return nil, err
	}
	if err := os.Chtimes(backupPath, info.ModTime(), info.ModTime()); err != nil {
		m.logger.Debug("could not keep source mtime on backup", "backup", backupPath, "error", err)
	}

	return &Record{
		Name:      name,
		Path:      backupPath,
		Original:  path,
		CreatedAt: createdAt,
		Size:      n,
	}, nil
}

// createUnique creates a new backup file without replacing an existing one.
func (m *Manager) createUnique(base string, at time.Time, perm os.FileMode) (*os.File, string, error) {
	stamp := at.Format(TimeFormat)
	for i := 0; i < maxNameAttempts; i++ {
		name := backupName(base, stamp, i)
		f, err := os.OpenFile(filepath.Join(m.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm|0o200)
		if err == nil {
			return f, name, nil
		}
		if !os.IsExist(err) {
			return nil, "", err
		}
	}
	return nil, "", fmt.Errorf("no free backup name for %s at %s", base, stamp)
}

func backupName(base, stamp string, n int) string {
	if n == 0 {
		return fmt.Sprintf("%s.%s.%s", base, stamp, Marker)
	}
	return fmt.Sprintf("%s.%s-%d.%s", base, stamp, n, Marker)
}

// parseBackupName returns the timestamp and collision counter embedded in a
// backup name for base. A name without a counter has counter 0.
func parseBackupName(base, name string) (time.Time, int, bool) {
	prefix, suffix := base+".", "."+Marker
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
		return time.Time{}, 0, false
	}
	rest := strings.TrimSuffix(strings.TrimPrefix(name, prefix), suffix)
	if len(rest) < len(TimeFormat) {
		return time.Time{}, 0, false
	}
	stamp, counter := rest[:len(TimeFormat)], rest[len(TimeFormat):]
	seq := 0
	if counter != "" {
		digits, ok := strings.CutPrefix(counter, "-")
		n, err := strconv.Atoi(digits)
		if !ok || err != nil || n < 1 || strconv.Itoa(n) != digits {
			return time.Time{}, 0, false
		}
		seq = n
	}
	t, err := time.ParseInLocation(TimeFormat, stamp, time.Local)
	if err != nil {
		return time.Time{}, 0, false
	}
	return t, seq, true
}

// List returns the backups of files named base, newest first.
func (m *Manager) List(base string) ([]Record, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("failed to read backup directory %s: %w", m.dir, err)
	}

	type listed struct {
		Record
		seq int
	}
	var found []listed
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		createdAt, seq, ok := parseBackupName(base, entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		found = append(found, listed{
			Record: Record{
				Name:      entry.Name(),
				Path:      filepath.Join(m.dir, entry.Name()),
				CreatedAt: createdAt,
				Size:      info.Size(),
			},
			seq: seq,
		})
	}

	// Backups taken within the same second are ordered by their counter.
	sort.SliceStable(found, func(i, j int) bool {
		if !found[i].CreatedAt.Equal(found[j].CreatedAt) {
			return found[i].CreatedAt.After(found[j].CreatedAt)
		}
		return found[i].seq > found[j].seq
	})
	records := make([]Record, 0, len(found))
	for _, f := range found {
		records = append(records, f.Record)
	}
	return records, nil
}

// Restore writes the named backup over path. The current content of path is
// itself backed up first, so a restore can be undone.
func (m *Manager) Restore(name, path string) (*Record, error) {
	backupPath := name
	if !filepath.IsAbs(name) {
		if filepath.Base(name) != name {
			return nil, fmt.Errorf("invalid backup name %q", name)
		}
		backupPath = filepath.Join(m.dir, name)
	}

	content, err := os.ReadFile(backupPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup %s: %w", backupPath, err)
	}
	rec, err := m.WriteWithBackup(path, content)
	if err != nil {
		return rec, err
	}
	m.logger.Info("restored backup", "backup", backupPath, "path", path)
	return rec, nil
}

// writeInPlace truncates and rewrites path, keeping the same file.
func writeInPlace(path string, content []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	_, err = f.Write(content)
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return err
}

func writeAtomic(path string, content []byte) error {
	return atomicfile.WriteFile(path, bytes.NewReader(content))
}

// copyOver copies src over dst in place.
func copyOver(dst, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, in)
	if err == nil {
		err = out.Sync()
	}
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	return err
}
