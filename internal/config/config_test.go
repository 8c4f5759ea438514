package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dean-jl/hostsync/internal/fetch"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configFile := filepath.Join(t.TempDir(), "hostsync.yaml")
	if err := os.WriteFile(configFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return configFile
}

func TestLoadConfig(t *testing.T) {
	configContent := `
source: https://example.com/hosts
hosts_file: /tmp/hosts
backup_dir: /tmp/hostsync-backups
user_agent: hostsync-test
insecure_skip_verify: true
timeout: 5s
retry:
  attempts: 5
  delay: 200ms
  max_delay: 2s
rate_limit: 0.5
write_mode: atomic
exclude:
  - intranet.example.com
dns:
  - name: "Cloudflare"
    ip: "1.1.1.1"
  - name: "Quad9"
    ip: "2620:fe::fe"
log_file: /tmp/hostsync.log
`
	cfg, err := LoadConfig(writeConfig(t, configContent))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Source != "https://example.com/hosts" {
		t.Errorf("Expected source 'https://example.com/hosts', got '%s'", cfg.Source)
	}
	if cfg.HostsFile != "/tmp/hosts" {
		t.Errorf("Expected hosts file '/tmp/hosts', got '%s'", cfg.HostsFile)
	}
	if cfg.BackupDir != "/tmp/hostsync-backups" {
		t.Errorf("Expected backup dir '/tmp/hostsync-backups', got '%s'", cfg.BackupDir)
	}
	if cfg.UserAgent != "hostsync-test" {
		t.Errorf("Expected user agent 'hostsync-test', got '%s'", cfg.UserAgent)
	}
	if !cfg.InsecureSkipVerify {
		t.Error("Expected insecure_skip_verify to be true")
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("Expected timeout 5s, got %s", cfg.Timeout)
	}
	if cfg.Retry.Attempts != 5 || cfg.Retry.Delay != 200*time.Millisecond || cfg.Retry.MaxDelay != 2*time.Second {
		t.Errorf("Unexpected retry settings: %+v", cfg.Retry)
	}
	if cfg.RateLimit != 0.5 {
		t.Errorf("Expected rate limit 0.5, got %v", cfg.RateLimit)
	}
	if cfg.WriteMode != "atomic" {
		t.Errorf("Expected write mode 'atomic', got '%s'", cfg.WriteMode)
	}
	if len(cfg.Exclude) != 1 || cfg.Exclude[0] != "intranet.example.com" {
		t.Errorf("Unexpected exclude list: %v", cfg.Exclude)
	}
	if addrs := cfg.DNSAddrs(); len(addrs) != 2 || addrs[0] != "1.1.1.1" || addrs[1] != "2620:fe::fe" {
		t.Errorf("Unexpected DNS servers: %v", addrs)
	}
	if cfg.LogFile != "/tmp/hostsync.log" {
		t.Errorf("Expected log file '/tmp/hostsync.log', got '%s'", cfg.LogFile)
	}
}

func TestLoadConfig_PartialKeepsDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "source: https://mirror.example.org/hosts\nretry:\n  attempts: 7\n"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	def := Default()
	if cfg.Source != "https://mirror.example.org/hosts" {
		t.Errorf("Expected source override, got '%s'", cfg.Source)
	}
	if cfg.HostsFile != def.HostsFile {
		t.Errorf("Expected default hosts file '%s', got '%s'", def.HostsFile, cfg.HostsFile)
	}
	if cfg.UserAgent != fetch.DefaultUserAgent {
		t.Errorf("Expected default user agent, got '%s'", cfg.UserAgent)
	}
	if cfg.Retry.Attempts != 7 {
		t.Errorf("Expected 7 attempts, got %d", cfg.Retry.Attempts)
	}
	if cfg.Retry.Delay != def.Retry.Delay {
		t.Errorf("Expected default retry delay %s, got %s", def.Retry.Delay, cfg.Retry.Delay)
	}
	if cfg.WriteMode != "inplace" {
		t.Errorf("Expected default write mode 'inplace', got '%s'", cfg.WriteMode)
	}
	if cfg.InsecureSkipVerify {
		t.Error("TLS verification must be on by default")
	}
}

func TestLoadConfig_EnvVars(t *testing.T) {
	t.Setenv(EnvSource, "https://env.example.com/hosts")
	t.Setenv(EnvHostsFile, "/env/hosts")
	t.Setenv(EnvBackupDir, "/env/backups")

	cfg, err := LoadConfig(writeConfig(t, "source: https://file.example.com/hosts\nhosts_file: /file/hosts\n"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Source != "https://env.example.com/hosts" {
		t.Errorf("Expected source from env, got '%s'", cfg.Source)
	}
	if cfg.HostsFile != "/env/hosts" {
		t.Errorf("Expected hosts file from env, got '%s'", cfg.HostsFile)
	}
	if cfg.BackupDir != "/env/backups" {
		t.Errorf("Expected backup dir from env, got '%s'", cfg.BackupDir)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err == nil {
		t.Fatal("Expected error for nonexistent file")
	}
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	t.Setenv(EnvSource, "https://env.example.com/hosts")

	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "hostsync.yaml"))
	if err != nil {
		t.Fatalf("Expected defaults for a missing file, got error: %v", err)
	}
	if cfg.Source != "https://env.example.com/hosts" {
		t.Errorf("Expected env override on defaults, got '%s'", cfg.Source)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Expected default timeout, got %s", cfg.Timeout)
	}
}

func TestLoadOrDefault_InvalidFile(t *testing.T) {
	_, err := LoadOrDefault(writeConfig(t, "write_mode: sideways\n"))
	if err == nil {
		t.Fatal("Expected a present but invalid file to fail")
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	configContent := `
source: https://example.com/hosts
exclude: [unclosed
`
	_, err := LoadConfig(writeConfig(t, configContent))
	if err == nil {
		t.Fatal("Expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "failed to parse YAML") {
		t.Errorf("Expected YAML parse error, got: %v", err)
	}
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"EmptySource", `source: ""`, "source is required"},
		{"BadScheme", `source: httpx://example.com/hosts`, "scheme"},
		{"NoHost", `source: https:///hosts`, "no host"},
		{"RemoteHostsFile", `hosts_file: https://example.com/hosts`, "local path"},
		{"ZeroTimeout", `timeout: 0s`, "timeout"},
		{"NoAttempts", "retry:\n  attempts: 0", "retry.attempts"},
		{"MaxBelowDelay", "retry:\n  delay: 5s\n  max_delay: 1s", "retry.max_delay"},
		{"ZeroRate", `rate_limit: 0`, "rate_limit"},
		{"WriteMode", `write_mode: sideways`, "write_mode"},
		{"BadExclude", "exclude:\n  - \"-bad-.com\"", "exclude[0]"},
		{"BadDNS", "dns:\n  - name: broken\n    ip: 999.1.1.1", "dns[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content+"\n"))
			if err == nil {
				t.Fatalf("Expected validation error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadConfig_LocalSource(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "source: /srv/mirror/hosts\n"))
	if err != nil {
		t.Fatalf("Expected a local source path to be accepted: %v", err)
	}
	if cfg.Source != "/srv/mirror/hosts" {
		t.Errorf("Unexpected source '%s'", cfg.Source)
	}
}

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default configuration must validate: %v", err)
	}
}

func TestIsValidDomainName(t *testing.T) {
	tests := []struct {
		name     string
		domain   string
		expected bool
	}{
		{"simple", "example.com", true},
		{"subdomain", "www.example.com", true},
		{"trailing dot", "example.com.", true},
		{"single label", "intranet", true},
		{"underscore", "_dmarc.example.com", true},
		{"empty", "", false},
		{"leading hyphen", "-example.com", false},
		{"trailing hyphen", "example-.com", false},
		{"double dot", "example..com", false},
		{"space", "exa mple.com", false},
		{"label too long", strings.Repeat("a", 64) + ".com", false},
		{"too long", strings.Repeat("a.", 127) + "com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isValidDomainName(tt.domain); got != tt.expected {
				t.Errorf("isValidDomainName(%q) = %v, expected %v", tt.domain, got, tt.expected)
			}
		})
	}
}
