package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/sink-tools/sink/pkg/errors"
	"github.com/sink-tools/sink/pkg/manifest"
)

// installTarget is one dependency selected for installation.
type installTarget struct {
	group string
	key   string
	entry manifest.Entry
}

func (t installTarget) name() string {
	if t.group != "" {
		return t.group + "." + t.key
	}
	return t.key
}

// installCommand creates the install command.
func (c *CLI) installCommand() *cobra.Command {
	var (
		group string
		all   bool
	)

	cmd := &cobra.Command{
		Use:   "install [dependency...]",
		Short: "Download declared dependencies",
		Long: `Install dependencies declared in the manifest.

Without arguments every dependency of the selected group is installed; pass
dependency names to install a subset. For grouped manifests the group comes
from --group or the manifest's default group; --all installs every group.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			m, err := c.loadManifest()
			if err != nil {
				return err
			}
			p, ok := m.Provider(sectionGitHub)
			if !ok || p.Dependencies == nil || p.Dependencies.Len() == 0 {
				printInfo("Nothing to install")
				return nil
			}

			targets, err := collectTargets(m, p, group, args, all)
			if err != nil {
				return err
			}

			installer, closeCache := c.newInstaller(ctx)
			defer closeCache()
			pr := newProgress(loggerFromContext(ctx))
			failed := 0
			for _, t := range targets {
				rec, err := m.ResolveRecord(p, t.key, t.entry)
				if err != nil {
					return err
				}

				sp := newSpinner(ctx, fmt.Sprintf("Installing %s", t.name()))
				sp.Start()
				path, err := installer.Install(ctx, rec, m.ResolveDestination(rec.Destination))
				if err != nil {
					sp.StopWithError(fmt.Sprintf("%s: %s", t.name(), errors.UserMessage(err)))
					if ctx.Err() != nil {
						return ctx.Err()
					}
					failed++
					continue
				}
				sp.StopWithSuccess(fmt.Sprintf("%s %s", t.name(), StyleDim.Render(path)))
			}

			if failed > 0 {
				return errors.New(errors.ErrCodeDownloadFailed,
					"%d of %d dependencies failed to install", failed, len(targets))
			}
			pr.done(fmt.Sprintf("Installed %d dependencies", len(targets)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&group, "group", "g", "", "dependency group to install")
	cmd.Flags().BoolVar(&all, "all", false, "install every group")

	return cmd
}

// collectTargets selects the dependencies an install invocation covers.
func collectTargets(m *manifest.Manifest, p *manifest.Provider, group string, keys []string, all bool) ([]installTarget, error) {
	c := p.Dependencies
	var targets []installTarget

	switch c.Kind() {
	case manifest.KindInvalid:
		return nil, errors.New(errors.ErrCodeCorruptContainer,
			"dependencies of provider %q are malformed; fix the manifest first", p.Section)

	case manifest.KindSingular:
		if group != "" {
			return nil, errors.New(errors.ErrCodeGroupedIntoSingular,
				"dependencies of provider %q are not grouped", p.Section)
		}
		if len(keys) == 0 {
			for _, k := range c.Keys() {
				e, _ := c.Entry(k)
				targets = append(targets, installTarget{key: k, entry: e})
			}
			return targets, nil
		}
		for _, k := range keys {
			e, ok := c.Entry(k)
			if !ok {
				return nil, errors.New(errors.ErrCodeNotFound,
					"dependency %q not declared for provider %q", k, p.Section)
			}
			targets = append(targets, installTarget{key: k, entry: e})
		}
		return targets, nil

	default:
		if all {
			c.Walk(func(g, k string, e manifest.Entry) {
				if len(keys) == 0 || slices.Contains(keys, k) {
					targets = append(targets, installTarget{group: g, key: k, entry: e})
				}
			})
			return targets, nil
		}

		g := group
		if g == "" {
			g = p.DefaultGroup
		}
		if g == "" {
			g = m.DefaultGroup
		}
		if g == "" {
			return nil, errors.New(errors.ErrCodeMissingGroup,
				"provider %q has grouped dependencies; pass --group or --all", p.Section)
		}
		if !slices.Contains(c.GroupNames(), g) {
			return nil, errors.New(errors.ErrCodeNotFound,
				"group %q not declared for provider %q", g, p.Section)
		}

		if len(keys) == 0 {
			for _, k := range c.GroupKeys(g) {
				e, _ := c.GroupEntry(g, k)
				targets = append(targets, installTarget{group: g, key: k, entry: e})
			}
			return targets, nil
		}
		for _, k := range keys {
			e, ok := c.GroupEntry(g, k)
			if !ok {
				return nil, errors.New(errors.ErrCodeNotFound,
					"dependency %q not declared in group %q of provider %q", k, g, p.Section)
			}
			targets = append(targets, installTarget{group: g, key: k, entry: e})
		}
		return targets, nil
	}
}
