package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"phpvhost/internal/manager"
	"phpvhost/internal/ui"
)

var (
	registerEntryPoint string
	registerOverwrite  bool
)

var registerCmd = &cobra.Command{
	Use:   "register [project-path]",
	Short: "Register a project as an HTTPS virtual host",
	Long: `Register a project directory as a local HTTPS virtual host.

With a project path the registration is non-interactive. Without one, a
project folder is picked interactively from the configured base path.

The domain is the project folder name plus .test; the docroot defaults to
the project's public/ subfolder when it exists.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRegister,
}

func init() {
	registerCmd.Flags().StringVarP(&registerEntryPoint, "entry-point", "e", "", "Served directory, relative to the project root")
	registerCmd.Flags().BoolVar(&registerOverwrite, "overwrite", false, "Replace an existing registration for the same domain")
}

func runRegister(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	req := manager.RegisterRequest{
		EntryPoint: registerEntryPoint,
		Overwrite:  registerOverwrite,
	}

	if len(args) == 1 {
		req.ProjectPath = args[0]
	} else {
		if !ui.IsInteractive() {
			return fmt.Errorf("no project path given and stdin is not a terminal")
		}
		path, ep, ok, err := pickProject(a)
		if err != nil {
			return err
		}
		if !ok {
			ui.Infof("Registration cancelled.")
			return nil
		}
		req.ProjectPath = path
		if req.EntryPoint == "" {
			req.EntryPoint = ep
		}
	}

	entry, err := a.manager.Register(cmd.Context(), req)
	if err != nil {
		return err
	}

	ui.Successf("%s registered", entry.Domain)
	ui.Infof("Visit https://%s in your browser (docroot: %s)", entry.Domain, entry.Docroot)
	return nil
}

// pickProject runs the interactive project selection: confirm the base
// path, choose a folder under it, choose the entry point.
func pickProject(a *app) (projectPath, entryPoint string, ok bool, err error) {
	p := ui.NewPrompter()

	reg, err := a.store.Load()
	if err != nil {
		return "", "", false, err
	}

	basePath := reg.BasePath
	if basePath == "" {
		ui.Infof("First time setup: configure the directory your projects live in.")
		basePath = p.ReadValue("Base projects path", defaultBasePath())
	} else if p.Confirm(fmt.Sprintf("Base path is %s. Change it?", basePath)) {
		basePath = p.ReadValue("New base path", basePath)
	}
	if basePath != reg.BasePath {
		reg.BasePath = basePath
		if err := a.store.Save(reg); err != nil {
			return "", "", false, err
		}
	}

	folder, err := p.SelectFolder(basePath)
	if err != nil {
		return "", "", false, err
	}
	if folder == "" {
		return "", "", false, nil
	}

	projectPath = filepath.Join(basePath, folder)
	entryPoint = p.ReadValue("Entry point relative to the project", manager.DefaultEntryPoint)

	domain, err := manager.DeriveDomain(projectPath)
	if err != nil {
		return "", "", false, err
	}

	ui.Infof("")
	ui.Infof("  Domain:  https://%s", domain)
	ui.Infof("  Docroot: %s", filepath.Join(projectPath, entryPoint))
	if !p.Confirm("Proceed with registration?") {
		return "", "", false, nil
	}

	return projectPath, entryPoint, true, nil
}

func defaultBasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "/srv/www"
	}
	return filepath.Join(home, "Projects")
}
