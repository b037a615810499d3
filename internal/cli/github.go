package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sink-tools/sink/pkg/manifest"
)

// githubCommand creates the github provider command group.
func (c *CLI) githubCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "github",
		Short: "Manage GitHub release dependencies",
	}

	cmd.AddCommand(c.githubAddCommand())

	return cmd
}

// githubAddCommand creates the "github add" subcommand. It installs the
// release asset first and only then records the dependency, so a failed
// download never leaves a dependency in the manifest that was never
// installed.
func (c *CLI) githubAddCommand() *cobra.Command {
	var (
		destination string
		version     string
		group       string
		noGitignore bool
		noInstall   bool
	)

	cmd := &cobra.Command{
		Use:   "add <owner/repository:pattern>",
		Short: "Declare a dependency and install its release asset",
		Long: `Declare a GitHub release dependency in the manifest and install it.

The pathspec names the repository and a glob pattern for the release asset,
e.g. "sharkdp/fd:fd-*-linux.tar.gz". The owner part may be omitted when the
manifest declares a default-owner. The dependency is recorded under the
repository name.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			m, err := c.loadOrInitManifest()
			if err != nil {
				return err
			}

			dep, err := manifest.NewGitHubDependency(args[0], destination, version, !noGitignore, m.DefaultOwner)
			if err != nil {
				return err
			}
			key := dep.Pathspec.Repository
			entry := manifest.Full{Dependency: *dep}

			// Validate the manifest mutation before spending a download.
			if err := m.AddDependency(sectionGitHub, group, key, entry, entry.DocValue()); err != nil {
				return err
			}

			if !noInstall {
				installer, closeCache := c.newInstaller(ctx)
				defer closeCache()

				sp := newSpinner(ctx, fmt.Sprintf("Installing %s", key))
				sp.Start()
				path, err := installer.Install(ctx, dep, m.ResolveDestination(dep.Destination))
				if err != nil {
					sp.StopWithError(fmt.Sprintf("Failed to install %s", key))
					return err
				}
				sp.StopWithSuccess(fmt.Sprintf("Installed %s", StyleValue.Render(path)))
			}

			if err := m.Save(); err != nil {
				return err
			}
			printSuccess("Added %s to %s", StyleHighlight.Render(key), m.Path())
			return nil
		},
	}

	cmd.Flags().StringVarP(&destination, "destination", "d", "",
		"directory the asset is installed to, relative to the manifest (default \".\")")
	cmd.Flags().StringVar(&version, "version", "",
		"version selector: latest, prerelease or a release tag (default latest)")
	cmd.Flags().StringVarP(&group, "group", "g", "",
		"dependency group to add to")
	cmd.Flags().BoolVar(&noGitignore, "no-gitignore", false,
		"do not add the installed asset to the destination's .gitignore")
	cmd.Flags().BoolVar(&noInstall, "no-install", false,
		"record the dependency without downloading it")

	return cmd
}

// loadOrInitManifest loads the manifest, starting a fresh one when the file
// does not exist yet.
func (c *CLI) loadOrInitManifest() (*manifest.Manifest, error) {
	path := c.manifestPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		printWarning("No manifest at %s, starting a new one", path)
		return manifest.NewAt(path), nil
	}
	return manifest.Load(path, c.Logger)
}
