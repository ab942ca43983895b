package main

import (
	"errors"
	"fmt"

	"phpvhost/internal/certs"
	"phpvhost/internal/config"
	"phpvhost/internal/history"
	"phpvhost/internal/hostsfile"
	"phpvhost/internal/manager"
	"phpvhost/internal/paths"
	"phpvhost/internal/registry"
	"phpvhost/internal/security"
	"phpvhost/internal/ui"
	"phpvhost/internal/vhost"
	"phpvhost/pkg/cmdutil"
)

// app wires the lifecycle manager and its collaborators from the per-user
// settings. Commands build one app per invocation.
type app struct {
	settings *config.Settings
	store    *registry.Store
	manager  *manager.Manager
	history  *history.History
}

func newApp() (*app, error) {
	settings, err := config.LoadDefault()
	if err != nil {
		return nil, err
	}

	reloadCmd, err := cmdutil.ParseCommandString(settings.ReloadCmd)
	if err != nil {
		return nil, fmt.Errorf("invalid reload_cmd in settings: %w", err)
	}

	runner := cmdutil.System{}
	store := registry.NewStore(paths.RegistryPath())

	// History is a convenience log; failing to open it must not block the
	// actual operation.
	var hist *history.History
	if err := security.CreateSecureDir(paths.StateDir(), security.PermStateDir); err != nil {
		ui.Warnf("cannot create state directory: %v", err)
	} else if hist, err = history.New(paths.HistoryPath()); err != nil {
		ui.Warnf("operation history disabled: %v", err)
		hist = nil
	}

	m := &manager.Manager{
		Store: store,
		Certs: &certs.Provisioner{
			Dir:    settings.CertDir,
			Tool:   settings.CertTool,
			Runner: runner,
		},
		VHosts: &vhost.Generator{
			Settings:  settings,
			ReloadCmd: reloadCmd,
			Runner:    runner,
			Warnf:     ui.Warnf,
		},
		Hosts: &hostsfile.Reconciler{Path: settings.HostsFile},
		Warnf: ui.Warnf,
	}
	if hist != nil {
		m.History = hist
	}

	return &app{
		settings: settings,
		store:    store,
		manager:  m,
		history:  hist,
	}, nil
}

func (a *app) close() {
	if a.history != nil {
		_ = a.history.Close()
	}
}

// remediation augments known privilege failures with a hint.
func remediation(err error) string {
	switch {
	case errors.Is(err, hostsfile.ErrUnwritable),
		errors.Is(err, vhost.ErrWriteFailure):
		return fmt.Sprintf("%v\nHint: writing system files requires elevated privileges; re-run with sudo.", err)
	case errors.Is(err, certs.ErrToolUnavailable):
		return fmt.Sprintf("%v\nHint: install mkcert and run 'phpvhost setup' once.", err)
	case errors.Is(err, registry.ErrCorrupt):
		return fmt.Sprintf("%v\nHint: the registry file was left untouched; inspect or fix it by hand.", err)
	default:
		return err.Error()
	}
}
