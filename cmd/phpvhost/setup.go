package main

import (
	"github.com/spf13/cobra"

	"phpvhost/internal/setup"
	"phpvhost/internal/ui"
	"phpvhost/pkg/cmdutil"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Prepare Apache and the local trust root (one-time)",
	Long: `Run the one-time system preparation: ensure the Apache config includes
the vhost directory, install the mkcert trust root, and enable mod_ssl where
the distribution uses a2enmod.

Registering projects does not repeat these steps, so run setup once before
the first register (and again after reinstalling Apache or mkcert).`,
	Args: cobra.NoArgs,
	RunE: runSetup,
}

func runSetup(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	s := &setup.Setup{Settings: a.settings, Runner: cmdutil.System{}}
	ctx := cmd.Context()

	added, err := s.EnsureInclude()
	ui.Statusf(err == nil, "vhost include in %s", a.settings.HTTPDConf)
	if err != nil {
		return err
	}
	if added {
		ui.Infof("Added %q to %s", setup.IncludeDirective, a.settings.HTTPDConf)
	}

	err = s.InstallTrustRoot(ctx)
	ui.Statusf(err == nil, "local trust root (%s -install)", a.settings.CertTool)
	if err != nil {
		return err
	}

	err = s.EnableModSSL(ctx)
	ui.Statusf(err == nil, "mod_ssl enabled")
	if err != nil {
		return err
	}

	ui.Successf("setup complete")
	return nil
}
