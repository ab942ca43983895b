// Package setup performs the one-time system preparation that is outside
// the per-project register path: wiring the vhost directory into the main
// Apache config, installing the local trust root, and enabling mod_ssl.
package setup

import (
	"context"
	"fmt"
	"os"
	"strings"

	"phpvhost/internal/config"
	"phpvhost/pkg/cmdutil"
)

// IncludeDirective is appended to httpd.conf so Apache picks up the
// generated site fragments.
const IncludeDirective = "IncludeOptional conf/extra/*.conf"

// Setup runs the prerequisite steps against the configured system paths.
type Setup struct {
	Settings *config.Settings
	Runner   cmdutil.Runner
}

// EnsureInclude makes sure httpd.conf includes the vhost directory.
// Reports whether the directive was added.
func (s *Setup) EnsureInclude() (bool, error) {
	data, err := os.ReadFile(s.Settings.HTTPDConf)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", s.Settings.HTTPDConf, err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		if strings.Contains(line, "IncludeOptional conf/extra/") && !strings.HasPrefix(strings.TrimSpace(line), "#") {
			return false, nil
		}
	}

	f, err := os.OpenFile(s.Settings.HTTPDConf, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return false, fmt.Errorf("failed to open %s for writing: %w (try re-running with sudo)", s.Settings.HTTPDConf, err)
	}
	defer f.Close()

	if _, err := f.WriteString("\n" + IncludeDirective + "\n"); err != nil {
		return false, fmt.Errorf("failed to append include directive: %w", err)
	}
	return true, nil
}

// CertToolInstalled reports whether the certificate tool is on PATH.
func (s *Setup) CertToolInstalled() bool {
	_, err := s.Runner.LookPath(s.Settings.CertTool)
	return err == nil
}

// InstallTrustRoot installs the local CA into the system and browser trust
// stores (mkcert -install). Safe to run repeatedly.
func (s *Setup) InstallTrustRoot(ctx context.Context) error {
	if !s.CertToolInstalled() {
		return fmt.Errorf("%s is not installed; install it with your package manager first", s.Settings.CertTool)
	}

	output, err := cmdutil.RunSimple(ctx, s.Runner, []string{s.Settings.CertTool, "-install"})
	if err != nil {
		return fmt.Errorf("failed to install trust root: %w: %s", err, output)
	}
	return nil
}

// EnableModSSL enables Apache's SSL module on distributions that ship
// a2enmod. Best-effort: on other layouts mod_ssl is compiled in or enabled
// in httpd.conf and there is nothing to do.
func (s *Setup) EnableModSSL(ctx context.Context) error {
	if _, err := s.Runner.LookPath("a2enmod"); err != nil {
		return nil
	}

	output, err := cmdutil.RunSimple(ctx, s.Runner, []string{"a2enmod", "ssl"})
	if err != nil {
		return fmt.Errorf("failed to enable mod_ssl: %w: %s", err, output)
	}
	return nil
}

// ServiceActive reports whether the web server service is running, using
// systemctl is-active against the service named in the reload command.
// Returns an empty service name when the reload command is not
// systemctl-based, in which case nothing can be checked.
func (s *Setup) ServiceActive(ctx context.Context) (service string, active bool) {
	parts, err := cmdutil.ParseCommandString(s.Settings.ReloadCmd)
	if err != nil || len(parts) < 2 || parts[0] != "systemctl" {
		return "", false
	}

	service = parts[len(parts)-1]
	_, err = cmdutil.RunSimple(ctx, s.Runner, []string{"systemctl", "is-active", service})
	return service, err == nil
}
