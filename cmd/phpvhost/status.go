package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"phpvhost/internal/setup"
	"phpvhost/internal/ui"
	"phpvhost/pkg/cmdutil"
	"phpvhost/pkg/fileutil"
	"phpvhost/pkg/templates"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show registered sites and detect drift",
	Long: `Show every registered site and whether its Apache config and hosts
entry still exist on disk. Sites whose artifacts disagree with the registry
are flagged as drifted; nothing is repaired automatically.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	statuses, err := a.manager.Status(cmd.Context())
	if err != nil {
		return err
	}

	ui.Header("Registered sites")
	if len(statuses) == 0 {
		ui.Infof("No registered projects.")
	} else {
		fmt.Printf("%-28s %-8s %-8s %s\n", "DOMAIN", "VHOST", "HOSTS", "DOCROOT")
		for _, st := range statuses {
			vhostState := "ok"
			if !st.VHostFileExists {
				vhostState = "missing"
			}
			hostsState := "ok"
			if !st.HostsEntryExists {
				hostsState = "missing"
			}
			fmt.Printf("%-28s %-8s %-8s %s\n", st.Entry.Domain, vhostState, hostsState, st.Entry.Docroot)
		}
		for _, st := range statuses {
			if st.Drifted() {
				ui.Warnf("%s has drifted: remove and re-register it, or restore its files by hand", st.Entry.Domain)
			}
		}
	}

	ui.Header("System")
	runner := cmdutil.System{}
	_, toolErr := runner.LookPath(a.settings.CertTool)
	ui.Statusf(toolErr == nil, "%s on PATH", a.settings.CertTool)
	ui.Statusf(fileutil.DirExists(a.settings.VHostDir), "vhost directory %s", a.settings.VHostDir)
	ui.Statusf(fileutil.FileExists(a.settings.HostsFile), "hosts file %s", a.settings.HostsFile)

	s := &setup.Setup{Settings: a.settings, Runner: runner}
	if service, active := s.ServiceActive(cmd.Context()); service != "" {
		ui.Statusf(active, "%s service active", service)
	}

	if certCount := countCerts(a.settings.CertDir); certCount >= 0 {
		ui.Infof("%d certificate(s) in %s", certCount, a.settings.CertDir)
	}
	for _, name := range templates.ListTemplates() {
		if path := fileutil.SearchPathsOptional(templates.SearchPaths(name)); path != "" {
			ui.Infof("template %q overridden by %s", name, path)
		}
	}

	return nil
}

// countCerts counts issued certificates, -1 when the directory is absent.
func countCerts(dir string) int {
	matches, err := filepath.Glob(filepath.Join(dir, "*.pem"))
	if err != nil || !fileutil.DirExists(dir) {
		return -1
	}
	count := 0
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && !info.IsDir() {
			count++
		}
	}
	return count
}
