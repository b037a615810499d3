package manifest

import (
	"github.com/sink-tools/sink/pkg/errors"
	"github.com/sink-tools/sink/pkg/manifest/tomldoc"
)

// Manifest keys of a fully specified dependency table.
const (
	keyRepository  = "repository"
	keyOrigin      = "origin"
	keyVersion     = "version"
	keyDestination = "destination"
	keyGitignore   = "gitignore"
)

// DefaultDestination is used when a dependency does not name one.
const DefaultDestination = "."

// GitHubDependency is a fully specified GitHub-release dependency: which
// asset to fetch, where to put it, which release to take, and whether the
// destination files should be kept out of version control.
type GitHubDependency struct {
	Pathspec    Pathspec
	Destination string
	Version     Version
	Gitignore   bool
}

// NewGitHubDependency builds a record from CLI-style fields. destination
// defaults to "." and version to "latest" when empty. It fails only when the
// pathspec cannot be parsed or the destination is unsafe.
func NewGitHubDependency(rawDependency, destination, version string, gitignore bool, defaultOwner string) (*GitHubDependency, error) {
	spec, err := ParsePathspec(rawDependency, defaultOwner)
	if err != nil {
		return nil, err
	}

	if destination == "" {
		destination = DefaultDestination
	}
	if err := errors.ValidateDestination(destination); err != nil {
		return nil, err
	}

	v := Latest()
	if version != "" {
		v = ParseVersion(version)
	}

	return &GitHubDependency{
		Pathspec:    spec,
		Destination: destination,
		Version:     v,
		Gitignore:   gitignore,
	}, nil
}

// Entry is the polymorphic value stored per dependency key: a version-only
// shorthand, a fully specified record, or an unrecognized value kept for
// error reporting instead of failing the whole parse.
type Entry interface {
	// DocValue renders the entry as a value for the formatted document
	// mirror.
	DocValue() tomldoc.Value

	isEntry()
}

// VersionOnly is the shorthand form: the dependency key mapped to a bare
// version string.
type VersionOnly struct {
	Version Version
}

func (VersionOnly) isEntry() {}

// DocValue renders the shorthand as its bare version string.
func (e VersionOnly) DocValue() tomldoc.Value {
	return tomldoc.String(e.Version.String())
}

// Full wraps a fully specified dependency record.
type Full struct {
	Dependency GitHubDependency
}

func (Full) isEntry() {}

// DocValue renders the record as an inline table. The gitignore flag is only
// written when it differs from its default of true.
func (e Full) DocValue() tomldoc.Value {
	t := tomldoc.NewTable().
		Set(keyRepository, tomldoc.String(e.Dependency.Pathspec.String())).
		Set(keyVersion, tomldoc.String(e.Dependency.Version.String())).
		Set(keyDestination, tomldoc.String(e.Dependency.Destination))
	if !e.Dependency.Gitignore {
		t.Set(keyGitignore, tomldoc.Bool(false))
	}
	return t
}

// Invalid captures a manifest value that matches neither known entry shape.
// Raw holds the decoded value for diagnostics.
type Invalid struct {
	Raw any
}

func (Invalid) isEntry() {}

// DocValue panics: invalid entries are never written back. They only exist
// so that validation can report them by key.
func (e Invalid) DocValue() tomldoc.Value {
	panic("manifest: invalid entry has no document representation")
}
