// Package manager orchestrates the certificate provisioner, vhost config
// generator, hosts file reconciler and registry store into the register,
// remove and status operations. The registry is the single source of truth:
// when register returns an error, no artifact created during that call may
// remain live outside it.
package manager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"phpvhost/internal/history"
	"phpvhost/internal/registry"
	"phpvhost/internal/security"
	"phpvhost/pkg/fileutil"
)

// TLD is the fixed top-level domain for managed sites.
const TLD = ".test"

// DefaultEntryPoint is the conventional docroot subfolder for PHP projects.
const DefaultEntryPoint = "public"

// Store persists the registry.
type Store interface {
	Load() (*registry.Registry, error)
	Save(*registry.Registry) error
}

// CertProvisioner ensures a trusted certificate/key pair exists for a domain.
type CertProvisioner interface {
	EnsureCertificate(ctx context.Context, domain string) (certPath, keyPath string, err error)
}

// VHostInstaller renders, installs and removes Apache site fragments.
type VHostInstaller interface {
	Install(ctx context.Context, domain, docroot, certPath, keyPath string) (confPath string, err error)
	Uninstall(ctx context.Context, confPath string) error
}

// HostsReconciler maintains loopback entries for managed domains.
type HostsReconciler interface {
	Add(domain string) error
	Remove(domain string) error
	Has(domain string) (bool, error)
}

// Recorder logs completed operations. Recording is best-effort; a failing
// recorder never fails the operation it describes.
type Recorder interface {
	RecordOperation(ctx context.Context, record *history.OperationRecord) (int64, error)
}

// Manager implements the virtual-host lifecycle.
type Manager struct {
	Store   Store
	Certs   CertProvisioner
	VHosts  VHostInstaller
	Hosts   HostsReconciler
	History Recorder

	// Warnf reports best-effort failures that do not stop the operation.
	// Optional.
	Warnf func(format string, args ...interface{})
}

// RegisterRequest describes a site to provision.
type RegisterRequest struct {
	// ProjectPath is the project root directory.
	ProjectPath string

	// EntryPoint is the served directory. Relative paths are resolved
	// against ProjectPath. When empty, <project>/public is used if it
	// exists, otherwise the project root itself.
	EntryPoint string

	// Overwrite replaces an existing registration for the same domain
	// instead of rejecting it.
	Overwrite bool
}

// EntryStatus is the drift report for one registered site.
type EntryStatus struct {
	Entry registry.Entry

	// VHostFileExists reports whether the Apache fragment is still on disk.
	VHostFileExists bool

	// HostsEntryExists reports whether the domain still resolves through
	// the managed hosts block.
	HostsEntryExists bool
}

// Drifted reports whether any artifact disagrees with the registry.
func (s EntryStatus) Drifted() bool {
	return !s.VHostFileExists || !s.HostsEntryExists
}

// DeriveDomain returns the managed domain for a project path.
func DeriveDomain(projectPath string) (string, error) {
	name := filepath.Base(filepath.Clean(projectPath))
	if err := security.ValidateProjectName(name); err != nil {
		return "", err
	}
	return name + TLD, nil
}

// resolveDocroot picks the served directory for a request.
func resolveDocroot(req RegisterRequest) (string, error) {
	if req.EntryPoint != "" {
		docroot := req.EntryPoint
		if !filepath.IsAbs(docroot) {
			docroot = filepath.Join(req.ProjectPath, docroot)
		}
		if !fileutil.DirExists(docroot) {
			return "", fmt.Errorf("entry point does not exist: %s", docroot)
		}
		return docroot, nil
	}

	conventional := filepath.Join(req.ProjectPath, DefaultEntryPoint)
	if fileutil.DirExists(conventional) {
		return conventional, nil
	}
	return req.ProjectPath, nil
}

// Register provisions a site: certificate, vhost config, hosts entry,
// registry entry, in that order. Failures roll back per step so no live
// artifact survives outside the registry; certificates are the exception,
// they are domain-scoped and harmless to leave for reuse.
func (m *Manager) Register(ctx context.Context, req RegisterRequest) (entry registry.Entry, err error) {
	started := time.Now()

	projectPath, absErr := filepath.Abs(req.ProjectPath)
	if absErr != nil {
		return registry.Entry{}, fmt.Errorf("invalid project path %s: %w", req.ProjectPath, absErr)
	}
	req.ProjectPath = projectPath

	if !fileutil.DirExists(projectPath) {
		return registry.Entry{}, fmt.Errorf("project path does not exist: %s", projectPath)
	}

	domain, err := DeriveDomain(projectPath)
	if err != nil {
		return registry.Entry{}, err
	}
	defer func() { m.record(ctx, domain, history.ActionRegister, started, err) }()

	docroot, err := resolveDocroot(req)
	if err != nil {
		return registry.Entry{}, err
	}

	reg, err := m.Store.Load()
	if err != nil {
		return registry.Entry{}, err
	}
	prior, priorErr := reg.Get(domain)
	hadPrior := priorErr == nil
	if hadPrior && !req.Overwrite {
		return registry.Entry{}, fmt.Errorf("%w: %s", registry.ErrDuplicateDomain, domain)
	}

	certPath, keyPath, err := m.Certs.EnsureCertificate(ctx, domain)
	if err != nil {
		return registry.Entry{}, err
	}

	confPath, err := m.VHosts.Install(ctx, domain, docroot, certPath, keyPath)
	if err != nil {
		// The certificate stays: it is reusable and harmless on its own.
		return registry.Entry{}, err
	}

	if err = m.Hosts.Add(domain); err != nil {
		// A vhost file without hosts resolution is a dangling config;
		// take it back out before surfacing the error.
		if uerr := m.VHosts.Uninstall(ctx, confPath); uerr != nil {
			m.warnf("rollback: failed to remove vhost config %s: %v", confPath, uerr)
		}
		return registry.Entry{}, err
	}

	entry = registry.Entry{
		Domain:          domain,
		Docroot:         docroot,
		ProjectPath:     projectPath,
		CertPath:        certPath,
		KeyPath:         keyPath,
		VHostConfigPath: confPath,
		CreatedAt:       time.Now(),
	}

	if err = reg.Put(entry, req.Overwrite); err != nil {
		m.rollbackArtifacts(ctx, domain, confPath, prior, hadPrior)
		return registry.Entry{}, err
	}
	if err = m.Store.Save(reg); err != nil {
		m.rollbackArtifacts(ctx, domain, confPath, prior, hadPrior)
		return registry.Entry{}, err
	}

	return entry, nil
}

// rollbackArtifacts reverses the vhost and hosts steps after a registry
// failure. On the overwrite path the persisted registration for the domain
// survives the failed save, so its artifacts are restored rather than
// removed: the fragment is re-rendered from the prior entry and the hosts
// line, keyed by the same domain, is kept.
func (m *Manager) rollbackArtifacts(ctx context.Context, domain, confPath string, prior registry.Entry, hadPrior bool) {
	if hadPrior {
		if _, err := m.VHosts.Install(ctx, prior.Domain, prior.Docroot, prior.CertPath, prior.KeyPath); err != nil {
			m.warnf("rollback: failed to restore vhost config for %s: %v", prior.Domain, err)
		}
		return
	}
	if err := m.Hosts.Remove(domain); err != nil {
		m.warnf("rollback: failed to remove hosts entry for %s: %v", domain, err)
	}
	if err := m.VHosts.Uninstall(ctx, confPath); err != nil {
		m.warnf("rollback: failed to remove vhost config %s: %v", confPath, err)
	}
}

// Remove tears down a site. Artifact cleanup is best-effort: a missing
// vhost file or hosts entry is warned about and skipped, so removal can
// always bring the registry back to a consistent state. The certificate is
// kept for reuse if the domain is ever registered again.
func (m *Manager) Remove(ctx context.Context, domain string) (err error) {
	started := time.Now()
	defer func() { m.record(ctx, domain, history.ActionRemove, started, err) }()

	reg, err := m.Store.Load()
	if err != nil {
		return err
	}
	entry, err := reg.Get(domain)
	if err != nil {
		return err
	}

	if herr := m.Hosts.Remove(domain); herr != nil {
		m.warnf("failed to remove hosts entry for %s: %v", domain, herr)
	}

	if uerr := m.VHosts.Uninstall(ctx, entry.VHostConfigPath); uerr != nil {
		m.warnf("failed to remove vhost config %s: %v", entry.VHostConfigPath, uerr)
	}

	if err = reg.Delete(domain); err != nil {
		return err
	}
	return m.Store.Save(reg)
}

// Status reports, for every registered site, whether its vhost file and
// hosts entry still exist. It is a read-only diagnostic: drift is flagged,
// never repaired.
func (m *Manager) Status(ctx context.Context) ([]EntryStatus, error) {
	reg, err := m.Store.Load()
	if err != nil {
		return nil, err
	}

	var statuses []EntryStatus
	for _, entry := range reg.List() {
		st := EntryStatus{Entry: entry}

		if _, serr := os.Stat(entry.VHostConfigPath); serr == nil {
			st.VHostFileExists = true
		}

		has, herr := m.Hosts.Has(entry.Domain)
		if herr != nil {
			m.warnf("failed to check hosts entry for %s: %v", entry.Domain, herr)
		}
		st.HostsEntryExists = has

		statuses = append(statuses, st)
	}

	return statuses, nil
}

// record logs a finished operation; history failures are warnings only.
func (m *Manager) record(ctx context.Context, domain, action string, started time.Time, opErr error) {
	if m.History == nil {
		return
	}

	// Duplicate registrations and unknown domains are user errors, not
	// operations that touched the system.
	if opErr != nil && (errors.Is(opErr, registry.ErrDuplicateDomain) || errors.Is(opErr, registry.ErrNotFound)) {
		return
	}

	status := history.StatusSuccess
	var errMsg *string
	if opErr != nil {
		status = history.StatusFailed
		msg := opErr.Error()
		errMsg = &msg
	}

	duration := time.Since(started).Seconds()
	rec := &history.OperationRecord{
		Domain:          domain,
		Action:          action,
		Status:          status,
		StartedAt:       started,
		DurationSeconds: &duration,
		ErrorMessage:    errMsg,
	}
	if _, err := m.History.RecordOperation(ctx, rec); err != nil {
		m.warnf("failed to record %s of %s in history: %v", action, domain, err)
	}
}

func (m *Manager) warnf(format string, args ...interface{}) {
	if m.Warnf != nil {
		m.Warnf(format, args...)
	}
}
