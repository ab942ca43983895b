package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"phpvhost/internal/ui"
)

var removeYes bool

var removeCmd = &cobra.Command{
	Use:   "remove [domain]",
	Short: "Remove a registered virtual host",
	Long: `Remove a registered virtual host: its hosts entry, its Apache site
config and its registry entry.

The certificate is kept so the domain can be re-registered without minting
a new one. Without a domain argument the site is picked interactively.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRemove,
}

func init() {
	removeCmd.Flags().BoolVarP(&removeYes, "yes", "y", false, "Skip the confirmation prompt")
}

func runRemove(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	var domain string
	if len(args) == 1 {
		domain = args[0]
	} else {
		if !ui.IsInteractive() {
			return fmt.Errorf("no domain given and stdin is not a terminal")
		}
		domain, err = pickDomain(a)
		if err != nil {
			return err
		}
		if domain == "" {
			ui.Infof("Removal cancelled.")
			return nil
		}
	}

	if !removeYes && ui.IsInteractive() {
		if !ui.NewPrompter().Confirm(fmt.Sprintf("Remove %s and its Apache config?", domain)) {
			ui.Infof("Removal cancelled.")
			return nil
		}
	}

	if err := a.manager.Remove(cmd.Context(), domain); err != nil {
		return err
	}

	ui.Successf("%s removed", domain)
	return nil
}

// pickDomain lets the user choose among the registered domains.
func pickDomain(a *app) (string, error) {
	reg, err := a.store.Load()
	if err != nil {
		return "", err
	}

	entries := reg.List()
	if len(entries) == 0 {
		return "", fmt.Errorf("no registered projects")
	}

	domains := make([]string, 0, len(entries))
	for _, e := range entries {
		domains = append(domains, e.Domain)
	}

	return ui.NewPrompter().SelectString("Select a site to remove:", domains), nil
}
