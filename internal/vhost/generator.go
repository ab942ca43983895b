package vhost

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"phpvhost/internal/config"
	"phpvhost/internal/security"
	"phpvhost/pkg/cmdutil"
	"phpvhost/pkg/templates"
)

var (
	// ErrTemplateRender indicates the site template could not be rendered.
	// This should not happen for well-formed inputs.
	ErrTemplateRender = errors.New("vhost template render failed")
	// ErrWriteFailure indicates the fragment could not be written, usually
	// a permission problem on the Apache config directory.
	ErrWriteFailure = errors.New("vhost config write failed")
	// ErrNotFound indicates the fragment to uninstall does not exist.
	ErrNotFound = errors.New("vhost config not found")
)

// SiteData is the variable set rendered into the Apache site template.
type SiteData struct {
	Domain    string
	Docroot   string
	CertPath  string
	KeyPath   string
	AccessLog string
	ErrorLog  string
}

// Generator renders Apache site fragments into the server's config
// directory and asks the server to reload. The fragment filename is derived
// from the domain, so re-rendering is idempotent and two distinct domains
// can never collide.
type Generator struct {
	// Settings supplies the site-config directory and the log paths.
	Settings *config.Settings

	// ReloadCmd makes the server pick up config changes.
	ReloadCmd []string

	// Runner executes the reload command.
	Runner cmdutil.Runner

	// Warnf reports non-fatal problems such as a failed reload. Optional.
	Warnf func(format string, args ...interface{})
}

// ConfigPath returns the fragment path for a domain.
func (g *Generator) ConfigPath(domain string) string {
	return filepath.Join(g.Settings.VHostDir, domain+".conf")
}

// Install renders and writes the site fragment for a domain, then requests
// a server reload. A reload failure is reported through Warnf but does not
// undo the write: the fragment is syntactically independent of server state
// until the reload happens.
func (g *Generator) Install(ctx context.Context, domain, docroot, certPath, keyPath string) (string, error) {
	// Both values end up inside Apache directives; reject anything
	// malformed before it reaches the server config.
	if err := security.ValidateDomain(domain); err != nil {
		return "", err
	}
	if err := security.ValidateAbsolutePath(docroot); err != nil {
		return "", fmt.Errorf("invalid docroot: %w", err)
	}

	data := SiteData{
		Domain:    domain,
		Docroot:   docroot,
		CertPath:  certPath,
		KeyPath:   keyPath,
		AccessLog: g.Settings.AccessLogPath(domain),
		ErrorLog:  g.Settings.ErrorLogPath(domain),
	}

	content, err := templates.Render(templates.ApacheSite, data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateRender, err)
	}

	confPath := g.ConfigPath(domain)
	if err := os.WriteFile(confPath, []byte(content), security.PermVHostConf); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrWriteFailure, confPath, err)
	}

	g.reload(ctx)
	return confPath, nil
}

// Uninstall deletes a site fragment and requests a server reload.
func (g *Generator) Uninstall(ctx context.Context, confPath string) error {
	if err := os.Remove(confPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, confPath)
		}
		return fmt.Errorf("failed to remove vhost config %s: %w", confPath, err)
	}

	g.reload(ctx)
	return nil
}

// reload asks the web server to re-read its configuration. Failures are
// surfaced as warnings only.
func (g *Generator) reload(ctx context.Context) {
	if len(g.ReloadCmd) == 0 {
		return
	}

	result, err := g.Runner.Run(ctx, cmdutil.ExecOptions{}, g.ReloadCmd)
	if err != nil {
		var output string
		if result != nil {
			output = string(result.Output)
		}
		g.warnf("reload command %q failed: %v: %s", cmdutil.FormatCommand(g.ReloadCmd), err, output)
	}
}

func (g *Generator) warnf(format string, args ...interface{}) {
	if g.Warnf != nil {
		g.Warnf(format, args...)
	}
}
