package hosts

import (
	"os"
	"path/filepath"
	"runtime"
)

// DefaultPath returns the system hosts file location for the current platform.
func DefaultPath() string {
	return pathFor(runtime.GOOS)
}

func pathFor(goos string) string {
	if goos == "windows" {
		root := os.Getenv("SystemRoot")
		if root == "" {
			root = `C:\Windows`
		}
		return root + `\System32\drivers\etc\hosts`
	}
	return "/etc/hosts"
}

// DefaultBackupDir returns the per-tool backup directory under the system
// temp directory.
func DefaultBackupDir(tool string) string {
	return filepath.Join(os.TempDir(), tool)
}
