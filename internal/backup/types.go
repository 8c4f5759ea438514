// Package backup keeps timestamped copies of the hosts file, writes it only
// after a copy exists, and restores a copy when the write fails.
package backup

import (
	"errors"
	"time"
)

// Marker is the final extension of every backup file name.
const Marker = "crlbak"

// TimeFormat is the timestamp layout embedded in backup file names.
const TimeFormat = "2006-01-02_15-04-05"

var (
	// ErrBackupDir is returned when the backup directory cannot be created.
	ErrBackupDir = errors.New("backup directory unavailable")
	// ErrBackup is returned when the live file cannot be copied to a backup.
	ErrBackup = errors.New("backup failed")
	// ErrWrite is returned when the live file cannot be overwritten.
	ErrWrite = errors.New("write failed")
	// ErrRollback is returned, joined with ErrWrite, when restoring the backup
	// after a failed write also fails.
	ErrRollback = errors.New("rollback failed")
)

// WriteMode selects how the live file is overwritten.
type WriteMode string

const (
	// WriteInPlace truncates and rewrites the live file, keeping its inode so
	// bind-mounted hosts files keep working.
	WriteInPlace WriteMode = "inplace"
	// WriteAtomic writes a temporary file and renames it over the live file.
	WriteAtomic WriteMode = "atomic"
)

// Record describes a backup file on disk.
type Record struct {
	Name      string    `json:"name" example:"hosts.2024-01-15_10-30-00.crlbak"`
	Path      string    `json:"path"`
	Original  string    `json:"original,omitempty" example:"/etc/hosts"`
	CreatedAt time.Time `json:"created_at"`
	Size      int64     `json:"size"`
}
