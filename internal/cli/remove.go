package cli

import (
	"github.com/spf13/cobra"
)

// removeCommand creates the remove command.
func (c *CLI) removeCommand() *cobra.Command {
	var group string

	cmd := &cobra.Command{
		Use:   "remove <dependency>",
		Short: "Drop a dependency from the manifest",
		Long: `Remove a declared dependency from the manifest.

Installed files are left in place; only the manifest entry is dropped.
Removing the last dependency of a group drops the group.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := c.loadManifest()
			if err != nil {
				return err
			}

			if err := m.RemoveDependency(sectionGitHub, group, args[0]); err != nil {
				return err
			}
			if err := m.Save(); err != nil {
				return err
			}

			printSuccess("Removed %s from %s", StyleHighlight.Render(args[0]), m.Path())
			return nil
		},
	}

	cmd.Flags().StringVarP(&group, "group", "g", "", "dependency group to remove from")

	return cmd
}
