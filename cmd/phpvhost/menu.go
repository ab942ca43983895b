package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"phpvhost/internal/ui"
)

// runMenu is the no-argument entry point: a small interactive loop over the
// register, manage and status flows.
func runMenu(cmd *cobra.Command, args []string) error {
	if !ui.IsInteractive() {
		return cmd.Help()
	}

	p := ui.NewPrompter()

	for {
		ui.Header("phpvhost")
		ui.Infof("  1) Register a project")
		ui.Infof("  2) Manage registered projects")
		ui.Infof("  3) Status")
		ui.Infof("  4) Quit")

		switch p.ReadValue("Select an option (1-4)", "4") {
		case "1":
			if err := runRegister(cmd, nil); err != nil {
				ui.Errorf("%s", remediation(err))
			}
		case "2":
			if err := runManage(cmd); err != nil {
				ui.Errorf("%s", remediation(err))
			}
		case "3":
			if err := runStatus(cmd, nil); err != nil {
				ui.Errorf("%s", remediation(err))
			}
		case "4":
			return nil
		default:
			ui.Errorf("invalid option")
		}
	}
}

// runManage lists registered sites and offers removal.
func runManage(cmd *cobra.Command) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	reg, err := a.store.Load()
	if err != nil {
		return err
	}

	entries := reg.List()
	if len(entries) == 0 {
		ui.Infof("No registered projects.")
		return nil
	}

	ui.Header("Registered projects")
	fmt.Printf("%-28s %-40s %s\n", "DOMAIN", "PROJECT", "LAST OPERATION")
	for _, e := range entries {
		last := "-"
		if a.history != nil {
			if rec, herr := a.history.LatestForDomain(cmd.Context(), e.Domain); herr == nil && rec != nil {
				last = fmt.Sprintf("%s (%s) %s", rec.Action, rec.Status, rec.StartedAt.Local().Format(time.DateTime))
			}
		}
		fmt.Printf("%-28s %-40s %s\n", e.Domain, e.ProjectPath, last)
	}

	domains := make([]string, 0, len(entries))
	for _, e := range entries {
		domains = append(domains, e.Domain)
	}

	p := ui.NewPrompter()
	domain := p.SelectString("Select a site to remove (or cancel):", domains)
	if domain == "" {
		return nil
	}
	if !p.Confirm(fmt.Sprintf("Remove %s and its Apache config?", domain)) {
		return nil
	}

	if err := a.manager.Remove(cmd.Context(), domain); err != nil {
		return err
	}
	ui.Successf("%s removed", domain)
	return nil
}
