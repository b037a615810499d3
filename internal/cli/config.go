package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sink-tools/sink/pkg/errors"
	"github.com/sink-tools/sink/pkg/manifest"
)

// configCommand creates the config inspection command.
func (c *CLI) configCommand() *cobra.Command {
	var (
		rawTOML bool
		all     bool
		list    string
		field   string
	)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the manifest and effective settings",
		Long: `Inspect the manifest.

By default a summary is printed. --toml prints the manifest with its original
formatting, --list enumerates providers, groups or dependencies, and --field
prints a single field addressed by its TOML key path, e.g. "default-owner" or
"GitHub.default-group".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := c.loadManifest()
			if err != nil {
				return err
			}

			switch {
			case rawTOML:
				fmt.Print(m.TOML())
				return nil
			case list != "":
				return printConfigList(m, list)
			case field != "":
				return printConfigField(m, field)
			default:
				printConfigSummary(m, all)
				return nil
			}
		},
	}

	cmd.Flags().BoolVar(&rawTOML, "toml", false, "print the manifest as TOML, formatting preserved")
	cmd.Flags().BoolVar(&all, "all", false, "include every declared dependency in the summary")
	cmd.Flags().StringVar(&list, "list", "", "list one of: providers, groups, dependencies")
	cmd.Flags().StringVar(&field, "field", "", "print a single field by key path")

	return cmd
}

func printConfigList(m *manifest.Manifest, what string) error {
	switch what {
	case "providers":
		for _, section := range m.ProviderSections() {
			fmt.Println(section)
		}
	case "groups":
		for _, section := range m.ProviderSections() {
			p, _ := m.Provider(section)
			if p.Dependencies == nil {
				continue
			}
			for _, g := range p.Dependencies.GroupNames() {
				fmt.Println(g)
			}
		}
	case "dependencies":
		for _, section := range m.ProviderSections() {
			p, _ := m.Provider(section)
			if p.Dependencies == nil {
				continue
			}
			p.Dependencies.Walk(func(group, key string, e manifest.Entry) {
				if group != "" {
					key = group + "." + key
				}
				fmt.Println(key)
			})
		}
	default:
		return errors.New(errors.ErrCodeInvalidInput,
			"unknown list %q (known: providers, groups, dependencies)", what)
	}
	return nil
}

// printConfigField resolves a dotted key path against the manifest: top-level
// fields by name, provider fields as "<section>.<field>".
func printConfigField(m *manifest.Manifest, field string) error {
	switch field {
	case "path":
		fmt.Println(m.Path())
		return nil
	case "default-owner":
		fmt.Println(m.DefaultOwner)
		return nil
	case "default-group":
		fmt.Println(m.DefaultGroup)
		return nil
	case "includes":
		for _, inc := range m.Includes {
			fmt.Println(inc)
		}
		return nil
	}

	section, name, ok := strings.Cut(field, ".")
	if ok {
		if p, exists := m.Provider(section); exists {
			switch name {
			case "provider":
				fmt.Println(p.Name)
				return nil
			case "default-owner":
				fmt.Println(p.DefaultOwner)
				return nil
			case "default-group":
				fmt.Println(p.DefaultGroup)
				return nil
			case "default-repository":
				fmt.Println(p.DefaultRepository)
				return nil
			}
		}
	}

	return errors.New(errors.ErrCodeInvalidInput, "unknown field %q", field)
}

func printConfigSummary(m *manifest.Manifest, all bool) {
	fmt.Println(StyleTitle.Render("Manifest"))
	printDetail("path: %s", m.Path())
	if m.DefaultOwner != "" {
		printDetail("default-owner: %s", m.DefaultOwner)
	}
	if m.DefaultGroup != "" {
		printDetail("default-group: %s", m.DefaultGroup)
	}
	for _, inc := range m.Includes {
		printDetail("include: %s", inc)
	}

	for _, section := range m.ProviderSections() {
		p, _ := m.Provider(section)
		fmt.Println(StyleTitle.Render(section))
		if p.Name != "" {
			printDetail("provider: %s", p.Name)
		}
		if p.DefaultGroup != "" {
			printDetail("default-group: %s", p.DefaultGroup)
		}
		if p.DefaultOwner != "" {
			printDetail("default-owner: %s", p.DefaultOwner)
		}
		if p.Dependencies == nil {
			printDetail("dependencies: none")
			continue
		}
		printDetail("dependencies: %d", p.Dependencies.Len())
		if all {
			p.Dependencies.Walk(func(group, key string, e manifest.Entry) {
				name := key
				if group != "" {
					name = group + "." + key
				}
				printDetail("  %s = %s", name, describeEntry(e))
			})
		}
	}
}

func describeEntry(e manifest.Entry) string {
	switch e := e.(type) {
	case manifest.VersionOnly:
		return e.Version.String()
	case manifest.Full:
		d := e.Dependency
		return fmt.Sprintf("%s @ %s -> %s", d.Pathspec.String(), d.Version.String(), d.Destination)
	default:
		return "(invalid)"
	}
}
