package certs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"phpvhost/internal/security"
	"phpvhost/pkg/cmdutil"
	"phpvhost/pkg/fileutil"
)

var (
	// ErrToolUnavailable indicates the certificate tool is not installed.
	ErrToolUnavailable = errors.New("certificate tool not found")
	// ErrGenerationFailed indicates the certificate tool ran but did not
	// produce a usable certificate/key pair.
	ErrGenerationFailed = errors.New("certificate generation failed")
)

// Provisioner mints locally-trusted leaf certificates via an external tool
// (mkcert by default). Trust-root installation is a one-time setup step and
// is not part of the per-project path.
type Provisioner struct {
	// Dir is the directory holding certificate/key pairs.
	Dir string

	// Tool is the certificate tool binary name or path.
	Tool string

	// Runner executes the certificate tool.
	Runner cmdutil.Runner
}

// CertPath returns the certificate path for a domain.
func (p *Provisioner) CertPath(domain string) string {
	return filepath.Join(p.Dir, domain+".pem")
}

// KeyPath returns the private key path for a domain.
func (p *Provisioner) KeyPath(domain string) string {
	return filepath.Join(p.Dir, domain+"-key.pem")
}

// EnsureCertificate returns the certificate and key paths for a domain,
// minting them if needed. Idempotent: when both files already exist the
// paths are returned unchanged and the external tool is not invoked.
func (p *Provisioner) EnsureCertificate(ctx context.Context, domain string) (certPath, keyPath string, err error) {
	certPath = p.CertPath(domain)
	keyPath = p.KeyPath(domain)

	if fileutil.FileExists(certPath) && fileutil.FileExists(keyPath) {
		// A key minted by an earlier version or touched by hand may have
		// been left too open; tighten it before reuse.
		if security.ValidateKeyPermissions(keyPath) != nil {
			if err := security.FixFilePermissions(keyPath, security.PermPrivateKey); err != nil {
				return "", "", err
			}
		}
		return certPath, keyPath, nil
	}

	if _, err := p.Runner.LookPath(p.Tool); err != nil {
		return "", "", fmt.Errorf("%w: %s (install it and run 'phpvhost setup')", ErrToolUnavailable, p.Tool)
	}

	if err := security.CreateSecureDir(p.Dir, security.PermStateDir); err != nil {
		return "", "", fmt.Errorf("failed to create certificate directory: %w", err)
	}

	args := []string{p.Tool, "-cert-file", certPath, "-key-file", keyPath, domain}
	result, err := p.Runner.Run(ctx, cmdutil.ExecOptions{}, args)
	if err != nil {
		var output string
		if result != nil {
			output = string(result.Output)
		}
		return "", "", fmt.Errorf("%w for %s: %v: %s", ErrGenerationFailed, domain, err, output)
	}

	if !fileutil.FileExists(certPath) || !fileutil.FileExists(keyPath) {
		return "", "", fmt.Errorf("%w for %s: tool exited 0 but did not produce both files", ErrGenerationFailed, domain)
	}

	// The server process reads the certificate; the key must not be
	// readable by other users.
	if err := security.FixFilePermissions(certPath, security.PermCertificate); err != nil {
		return "", "", err
	}
	if err := security.FixFilePermissions(keyPath, security.PermPrivateKey); err != nil {
		return "", "", err
	}

	return certPath, keyPath, nil
}
