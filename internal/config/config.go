// Package config provides configuration management for hostsync.
//
// Configuration is read from a YAML file. Every key is optional; anything
// left out keeps its built-in default. A few settings can also be overridden
// from the environment, and command line flags override both.
//
// Environment Variables:
//   - HOSTSYNC_SOURCE: remote hosts document URL
//   - HOSTSYNC_HOSTS_FILE: local hosts file to update
//   - HOSTSYNC_BACKUP_DIR: directory that receives backups
//
// Example configuration:
//
//	source: https://raw.githubusercontent.com/racaljk/hosts/master/hosts
//	hosts_file: /etc/hosts
//	backup_dir: /var/backups/hostsync
//	timeout: 30s
//	retry:
//	  attempts: 3
//	  delay: 1s
//	  max_delay: 30s
//	write_mode: atomic
//	exclude:
//	  - intranet.example.com
//	dns:
//	  - name: "Cloudflare"
//	    ip: "1.1.1.1"
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/dean-jl/hostsync/internal/backup"
	"github.com/dean-jl/hostsync/internal/fetch"
	"github.com/dean-jl/hostsync/internal/hosts"
	"github.com/samber/lo"
	"gopkg.in/yaml.v2"
)

const Version = "1.0.0"

// DefaultFile is read when no --config flag is given. It may be absent.
const DefaultFile = "hostsync.yaml"

// DefaultSource is the remote hosts document used when none is configured.
const DefaultSource = "https://raw.githubusercontent.com/racaljk/hosts/master/hosts"

const (
	EnvSource    = "HOSTSYNC_SOURCE"
	EnvHostsFile = "HOSTSYNC_HOSTS_FILE"
	EnvBackupDir = "HOSTSYNC_BACKUP_DIR"
)

// Domain name validation regex - matches valid DNS domain names
var domainNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]([a-zA-Z0-9\-_]{0,61}[a-zA-Z0-9_])?(\.[a-zA-Z0-9_]([a-zA-Z0-9\-_]{0,61}[a-zA-Z0-9_])?)*$`)

// isValidDomainName validates a domain name according to DNS standards
func isValidDomainName(domain string) bool {
	if domain == "" || len(domain) > 253 {
		return false
	}

	// Remove trailing dot if present (for FQDN)
	domain = strings.TrimSuffix(domain, ".")

	if !domainNameRegex.MatchString(domain) {
		return false
	}

	for _, part := range strings.Split(domain, ".") {
		// Each label must be 1-63 characters
		if len(part) == 0 || len(part) > 63 {
			return false
		}
		if strings.HasPrefix(part, "-") || strings.HasSuffix(part, "-") {
			return false
		}
	}

	return true
}

type DNSServer struct {
	Name string `yaml:"name"`
	IP   string `yaml:"ip"`
}

// Retry controls how temporary fetch failures are retried.
type Retry struct {
	Attempts int           `yaml:"attempts"`
	Delay    time.Duration `yaml:"delay"`
	MaxDelay time.Duration `yaml:"max_delay"`
}

type Config struct {
	Source             string        `yaml:"source"`
	HostsFile          string        `yaml:"hosts_file"`
	BackupDir          string        `yaml:"backup_dir"`
	UserAgent          string        `yaml:"user_agent"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`
	Timeout            time.Duration `yaml:"timeout"`
	Retry              Retry         `yaml:"retry"`
	RateLimit          float64       `yaml:"rate_limit"` // requests per second
	WriteMode          string        `yaml:"write_mode"`
	Exclude            []string      `yaml:"exclude"`
	DNSServers         []DNSServer   `yaml:"dns"`
	LogFile            string        `yaml:"log_file"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Source:    DefaultSource,
		HostsFile: hosts.DefaultPath(),
		BackupDir: hosts.DefaultBackupDir("hostsync"),
		UserAgent: fetch.DefaultUserAgent,
		Timeout:   30 * time.Second,
		Retry: Retry{
			Attempts: 3,
			Delay:    1 * time.Second,
			MaxDelay: 30 * time.Second,
		},
		RateLimit: 2.0,
		WriteMode: string(backup.WriteInPlace),
	}
}

// Validate checks that every setting is usable.
func (c *Config) Validate() error {
	if c.Source == "" {
		return fmt.Errorf("source is required")
	}
	if hosts.IsRemote(c.Source) {
		u, err := url.Parse(c.Source)
		if err != nil {
			return fmt.Errorf("invalid source URL %q: %w", c.Source, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("source URL scheme must be http or https, got %q", u.Scheme)
		}
		if u.Host == "" {
			return fmt.Errorf("source URL %q has no host", c.Source)
		}
	}
	if c.HostsFile == "" {
		return fmt.Errorf("hosts_file is required")
	}
	if hosts.IsRemote(c.HostsFile) {
		return fmt.Errorf("hosts_file must be a local path, got %q", c.HostsFile)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.Retry.Attempts < 1 {
		return fmt.Errorf("retry.attempts must be at least 1, got %d", c.Retry.Attempts)
	}
	if c.Retry.Delay <= 0 {
		return fmt.Errorf("retry.delay must be positive, got %s", c.Retry.Delay)
	}
	if c.Retry.MaxDelay < c.Retry.Delay {
		return fmt.Errorf("retry.max_delay (%s) must not be below retry.delay (%s)", c.Retry.MaxDelay, c.Retry.Delay)
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("rate_limit must be positive, got %v", c.RateLimit)
	}

	switch backup.WriteMode(c.WriteMode) {
	case backup.WriteInPlace, backup.WriteAtomic:
	default:
		return fmt.Errorf("write_mode must be %q or %q, got %q", backup.WriteInPlace, backup.WriteAtomic, c.WriteMode)
	}

	for i, host := range c.Exclude {
		if !isValidDomainName(host) {
			return fmt.Errorf("exclude[%d]: invalid hostname format: %s", i, host)
		}
	}

	for i, server := range c.DNSServers {
		if _, err := netip.ParseAddr(server.IP); err != nil {
			return fmt.Errorf("dns[%d] (%s): invalid IP address %q", i, server.Name, server.IP)
		}
	}

	return nil
}

// DNSAddrs returns the IP of every configured DNS server.
func (c *Config) DNSAddrs() []string {
	return lo.Map(c.DNSServers, func(s DNSServer, _ int) string { return s.IP })
}

// applyEnv overrides settings from the environment.
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvSource); v != "" {
		c.Source = v
	}
	if v := os.Getenv(EnvHostsFile); v != "" {
		c.HostsFile = v
	}
	if v := os.Getenv(EnvBackupDir); v != "" {
		c.BackupDir = v
	}
}

// LoadConfig loads and validates a configuration file from the specified path.
//
// Keys missing from the file keep their defaults. Environment variables are
// applied on top of the file before validation.
//
// Example:
//
//	cfg, err := LoadConfig("hostsync.yaml")
//	if err != nil {
//		log.Fatalf("Failed to load config: %v", err)
//	}
//	fmt.Printf("Updating %s from %s\n", cfg.HostsFile, cfg.Source)
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config file %s: %w", path, err)
	}
	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// LoadOrDefault loads path like LoadConfig, except that a missing file yields
// the defaults (with environment overrides) instead of an error.
func LoadOrDefault(path string) (*Config, error) {
	config, err := LoadConfig(path)
	if err == nil {
		return config, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	config = Default()
	config.applyEnv()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}
