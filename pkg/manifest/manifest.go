// Package manifest implements the sink manifest: a TOML file declaring
// GitHub-release dependencies, grouped by provider and optionally by
// user-defined groups such as dev or prod.
//
// The manifest is kept in two synchronized representations for the lifetime
// of one loaded file: the strongly typed model in this package, used for
// validation and programmatic mutation, and a format-preserving document
// mirror (package tomldoc) used to rewrite the file without destroying
// comments, key order or whitespace. Every persisted mutation updates both
// representations in the same call; neither is ever derived from the other
// after load.
package manifest

import (
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/sink-tools/sink/pkg/errors"
	"github.com/sink-tools/sink/pkg/manifest/tomldoc"
)

// Top-level manifest keys and per-provider section keys.
const (
	keyDefaultOwner      = "default-owner"
	keyDefaultGroup      = "default-group"
	keyIncludes          = "includes"
	keyProvider          = "provider"
	keyDefaultRepository = "default-repository"
	keyDependencies      = "dependencies"
)

// Provider is one provider section of the manifest, e.g. [GitHub].
type Provider struct {
	// Section is the TOML table name the provider lives under.
	Section string
	// Name is the value of the section's "provider" key.
	Name string

	DefaultGroup      string
	DefaultOwner      string
	DefaultRepository string

	// Dependencies is nil until the provider has a decided dependency
	// container (an absent or empty dependencies table decides nothing).
	Dependencies *Container
}

// Manifest is the root model: global options plus one dependency container
// per provider, paired with the formatted document mirror of the same file.
type Manifest struct {
	DefaultOwner string
	DefaultGroup string
	Includes     []string

	providers     map[string]*Provider
	providerOrder []string

	path string
	doc  *tomldoc.Document
}

// Path returns the file the manifest was loaded from, or "" for manifests
// parsed from raw text.
func (m *Manifest) Path() string { return m.path }

// Provider returns the provider stored under the given section name.
func (m *Manifest) Provider(section string) (*Provider, bool) {
	p, ok := m.providers[section]
	return p, ok
}

// ProviderSections returns the provider section names in declaration order.
func (m *Manifest) ProviderSections() []string { return m.providerOrder }

// TOML renders the formatted document mirror. This is what Save writes; the
// typed model is never serialized directly.
func (m *Manifest) TOML() string { return m.doc.String() }

// Parse builds both manifest representations from raw TOML text. The result
// is not yet validated; callers decide whether Invalid entries are fatal.
func Parse(text string) (*Manifest, error) {
	m, err := decode(text)
	if err != nil {
		return nil, err
	}
	m.doc, err = tomldoc.Parse(text)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// NewAt returns an empty manifest that saves to path. Used when a command
// has to create the manifest on first add.
func NewAt(path string) *Manifest {
	m, _ := Parse("")
	m.path = path
	return m
}

// Load reads, parses and validates the manifest at path. Includes are loaded
// recursively; a broken include is logged and skipped, never fatal to the
// including manifest. Merging of include contents is not implemented, so a
// successfully loaded include is discarded after validation.
func Load(path string, logger *log.Logger) (*Manifest, error) {
	if logger == nil {
		logger = log.Default()
	}
	return load(path, logger, map[string]bool{})
}

func load(path string, logger *log.Logger, seen map[string]bool) (*Manifest, error) {
	abs, err := filepath.Abs(path)
	if err == nil {
		if seen[abs] {
			return nil, errors.New(errors.ErrCodeLoadFailed, "include cycle at %s", path)
		}
		seen[abs] = true
	}

	logger.Debug("Parsing manifest", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeLoadFailed, err, "failed to read manifest %s", path)
	}

	m, err := Parse(string(data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeLoadFailed, err, "failed to parse manifest %s", path)
	}
	m.path = path

	for _, include := range m.Includes {
		target := include
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(path), target)
		}
		if _, err := load(target, logger, seen); err != nil {
			logger.Warn("Failed to include manifest, skipping", "path", include, "err", err)
			continue
		}
		logger.Info("Including manifest", "path", include)
		// TODO: merge include contents into the parent manifest once the
		// merge semantics are decided.
	}

	if err := m.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeLoadFailed, err, "failed to load manifest %s", path)
	}

	logger.Debug("Parsing done", "path", path)
	return m, nil
}

// Validate traverses every provider's container and fails on the first
// Invalid entry or container, in manifest declaration order. It is a pure
// read-only pass; it runs once after load and must be re-run by callers that
// mutate the model outside this package.
func (m *Manifest) Validate() error {
	for _, section := range m.providerOrder {
		c := m.providers[section].Dependencies
		if c == nil {
			continue
		}
		if c.Kind() == KindInvalid {
			return errors.New(errors.ErrCodeMalformedEntries,
				"invalid dependencies table for provider %q", section)
		}

		var bad error
		c.Walk(func(group, key string, e Entry) {
			if bad != nil {
				return
			}
			if _, invalid := e.(Invalid); invalid {
				if group != "" {
					key = group + "." + key
				}
				bad = errors.New(errors.ErrCodeMalformedEntries,
					"invalid dependency entry %q for provider %q", key, section)
			}
		})
		if bad != nil {
			return bad
		}
	}
	return nil
}

// AddDependency inserts entry under key for the given provider section,
// mirroring the same key path into the formatted document with value. The
// target group is resolved once per call: the group argument, then the
// provider's default-group, then the manifest's default-group, then none.
//
// The operation is atomic: every failure is detected before either
// representation is touched.
func (m *Manifest) AddDependency(section, group, key string, entry Entry, value tomldoc.Value) error {
	if err := errors.ValidateDependencyKey(key); err != nil {
		return err
	}
	if group != "" {
		if err := errors.ValidateGroupName(group); err != nil {
			return err
		}
	}

	p := m.providers[section]
	resolved := m.resolveGroup(group, p)

	c := (*Container)(nil)
	if p != nil {
		c = p.Dependencies
	}

	switch {
	case c == nil:
		// First dependency decides the container shape.

	case c.Kind() == KindInvalid:
		return errors.New(errors.ErrCodeCorruptContainer,
			"dependencies of provider %q are malformed; fix the manifest first", section)

	case c.Kind() == KindSingular && resolved != "":
		return errors.New(errors.ErrCodeGroupedIntoSingular,
			"cannot add %q to group %q: provider %q has ungrouped dependencies", key, resolved, section)

	case c.Kind() == KindSingular:
		if _, exists := c.Entry(key); exists {
			return errors.New(errors.ErrCodeDuplicateKey,
				"dependency %q already declared for provider %q", key, section)
		}

	case c.Kind() == KindGrouped && resolved == "":
		return errors.New(errors.ErrCodeMissingGroup,
			"provider %q has grouped dependencies; a group is required", section)

	default: // grouped, group resolved
		if _, exists := c.GroupEntry(resolved, key); exists {
			return errors.New(errors.ErrCodeDuplicateKey,
				"dependency %q already declared in group %q of provider %q", key, resolved, section)
		}
	}

	table := []string{section, keyDependencies}
	if resolved != "" {
		table = append(table, resolved)
	}
	if !m.doc.CanAddress(table) {
		return errors.New(errors.ErrCodeCorruptContainer,
			"dependencies of provider %q are declared inline and cannot be edited in place", section)
	}

	// All checks passed; commit to both representations.
	if p == nil {
		p = &Provider{Section: section}
		m.providers[section] = p
		m.providerOrder = append(m.providerOrder, section)
	}
	if p.Dependencies == nil {
		if resolved != "" {
			p.Dependencies = newGrouped()
		} else {
			p.Dependencies = newSingular()
		}
	}

	if resolved != "" {
		p.Dependencies.putGrouped(resolved, key, entry)
	} else {
		p.Dependencies.putFlat(key, entry)
	}
	m.doc.SetKey(table, key, value)

	return nil
}

// RemoveDependency deletes key from the given provider section and from the
// same key path of the formatted document. Group resolution follows
// AddDependency. Removing the last entry of a group drops the group.
func (m *Manifest) RemoveDependency(section, group, key string) error {
	p := m.providers[section]
	if p == nil || p.Dependencies == nil {
		return errors.New(errors.ErrCodeNotFound,
			"provider %q has no dependencies", section)
	}

	c := p.Dependencies
	resolved := m.resolveGroup(group, p)
	table := []string{section, keyDependencies}

	switch {
	case c.Kind() == KindInvalid:
		return errors.New(errors.ErrCodeCorruptContainer,
			"dependencies of provider %q are malformed; fix the manifest first", section)

	case c.Kind() == KindSingular && resolved != "":
		return errors.New(errors.ErrCodeGroupedIntoSingular,
			"provider %q has ungrouped dependencies; do not pass a group", section)

	case c.Kind() == KindSingular:
		if _, exists := c.Entry(key); !exists {
			return errors.New(errors.ErrCodeNotFound,
				"dependency %q not declared for provider %q", key, section)
		}
		if err := m.deleteDocEntry(table, key); err != nil {
			return err
		}
		c.deleteFlat(key)

	case resolved == "":
		return errors.New(errors.ErrCodeMissingGroup,
			"provider %q has grouped dependencies; a group is required", section)

	default:
		if _, exists := c.GroupEntry(resolved, key); !exists {
			return errors.New(errors.ErrCodeNotFound,
				"dependency %q not declared in group %q of provider %q", key, resolved, section)
		}
		table = append(table, resolved)
		if err := m.deleteDocEntry(table, key); err != nil {
			return err
		}
		emptied := c.deleteGrouped(resolved, key)
		if emptied && m.doc.KeyCount(table) == 0 {
			m.doc.DeleteTable(table)
		}
	}

	return nil
}

// deleteDocEntry removes a dependency from the document whether it was
// written as a key line or as its own [table] block. An entry only reachable
// through an inline table cannot be removed in place and fails instead of
// leaving the document out of step with the model.
func (m *Manifest) deleteDocEntry(table []string, key string) error {
	if m.doc.DeleteKey(table, key) {
		return nil
	}
	if m.doc.DeleteTable(append(append([]string(nil), table...), key)) {
		return nil
	}
	return errors.New(errors.ErrCodeCorruptContainer,
		"dependency %q is declared inline and cannot be edited in place", key)
}

// resolveGroup applies the group precedence chain: explicit argument, then
// the provider default, then the manifest default, then no group.
func (m *Manifest) resolveGroup(requested string, p *Provider) string {
	if requested != "" {
		return requested
	}
	if p != nil && p.DefaultGroup != "" {
		return p.DefaultGroup
	}
	return m.DefaultGroup
}

// ResolveRecord turns an entry into an installable record. Shorthand entries
// resolve their pathspec from the defaults chain with the entry key as the
// repository and a pattern matching every release asset.
func (m *Manifest) ResolveRecord(p *Provider, key string, e Entry) (*GitHubDependency, error) {
	switch e := e.(type) {
	case Full:
		return &e.Dependency, nil
	case VersionOnly:
		owner := p.DefaultOwner
		if owner == "" {
			owner = m.DefaultOwner
		}
		if owner == "" {
			return nil, errors.New(errors.ErrCodeInvalidPathspec,
				"cannot resolve shorthand %q: no default owner configured", key)
		}
		return &GitHubDependency{
			Pathspec:    Pathspec{Owner: owner, Repository: key, Pattern: "*"},
			Destination: DefaultDestination,
			Version:     e.Version,
			Gitignore:   true,
		}, nil
	default:
		return nil, errors.New(errors.ErrCodeMalformedEntries,
			"dependency %q is malformed", key)
	}
}

// ResolveDestination interprets a record destination relative to the
// manifest file's directory. Absolute destinations are returned unchanged.
func (m *Manifest) ResolveDestination(destination string) string {
	if filepath.IsAbs(destination) || m.path == "" {
		return destination
	}
	return filepath.Join(filepath.Dir(m.path), destination)
}

// Save serializes the formatted document mirror back to the file the
// manifest was loaded from. The typed model is never written; serializing
// the mirror is what preserves formatting.
func (m *Manifest) Save() error {
	if m.path == "" {
		return errors.New(errors.ErrCodeSaveFailed, "manifest has no source path")
	}
	return m.SaveTo(m.path)
}

// SaveTo writes the formatted document mirror to path.
func (m *Manifest) SaveTo(path string) error {
	if err := os.WriteFile(path, []byte(m.doc.String()), 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeSaveFailed, err, "failed to write manifest %s", path)
	}
	return nil
}
