package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"phpvhost/internal/paths"
)

// Settings holds the system paths and commands the tool operates on. Every
// field has a default matching a stock Apache httpd setup; a settings file
// is only needed for non-standard layouts (Debian-style apache2, custom
// cert tools and so on). Unknown keys in the file are ignored so older
// binaries can read newer files.
type Settings struct {
	// VHostDir is the directory scanned by Apache for site fragments.
	VHostDir string `yaml:"vhost_dir"`

	// HTTPDConf is the main Apache configuration file, used by setup to
	// verify the vhost directory is included.
	HTTPDConf string `yaml:"httpd_conf"`

	// HostsFile is the OS hosts file.
	HostsFile string `yaml:"hosts_file"`

	// CertDir is where issued certificates and keys are stored.
	CertDir string `yaml:"cert_dir"`

	// CertTool is the binary that mints locally-trusted certificates.
	CertTool string `yaml:"cert_tool"`

	// LogDir is where per-domain Apache access/error logs are written.
	LogDir string `yaml:"log_dir"`

	// ReloadCmd is the shell-quoted command that makes Apache pick up
	// config changes.
	ReloadCmd string `yaml:"reload_cmd"`
}

// Defaults returns settings for a stock httpd installation.
func Defaults() *Settings {
	return &Settings{
		VHostDir:  "/etc/httpd/conf/extra",
		HTTPDConf: "/etc/httpd/conf/httpd.conf",
		HostsFile: "/etc/hosts",
		CertDir:   paths.DefaultCertDir(),
		CertTool:  "mkcert",
		LogDir:    "/var/log/httpd",
		ReloadCmd: "systemctl restart httpd",
	}
}

// Load reads the settings file at path, applying defaults for any field
// left empty. A missing file is not an error; the defaults are returned.
func Load(path string) (*Settings, error) {
	s := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var file Settings
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}

	merge(s, &file)
	return s, nil
}

// LoadDefault reads the settings file from the per-user state directory.
func LoadDefault() (*Settings, error) {
	return Load(paths.SettingsPath())
}

// merge copies non-empty fields from src over dst.
func merge(dst, src *Settings) {
	if src.VHostDir != "" {
		dst.VHostDir = src.VHostDir
	}
	if src.HTTPDConf != "" {
		dst.HTTPDConf = src.HTTPDConf
	}
	if src.HostsFile != "" {
		dst.HostsFile = src.HostsFile
	}
	if src.CertDir != "" {
		dst.CertDir = src.CertDir
	}
	if src.CertTool != "" {
		dst.CertTool = src.CertTool
	}
	if src.LogDir != "" {
		dst.LogDir = src.LogDir
	}
	if src.ReloadCmd != "" {
		dst.ReloadCmd = src.ReloadCmd
	}
}

// AccessLogPath returns the Apache access log path for a domain.
func (s *Settings) AccessLogPath(domain string) string {
	return filepath.Join(s.LogDir, domain+"-access.log")
}

// ErrorLogPath returns the Apache error log path for a domain.
func (s *Settings) ErrorLogPath(domain string) string {
	return filepath.Join(s.LogDir, domain+"-error.log")
}
