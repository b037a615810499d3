package manifest

import (
	"strings"

	"github.com/sink-tools/sink/pkg/errors"
)

// Pathspec identifies a releasable asset as owner/repository:pattern, where
// pattern is a glob matched against release asset names. All three fields are
// non-empty once parsed. Pathspec is comparable and used as a map key.
type Pathspec struct {
	Owner      string
	Repository string
	Pattern    string
}

// ParsePathspec parses an input of the form "owner/repository:pattern". When
// defaultOwner is non-empty, the shorter "repository:pattern" form is also
// accepted and the default owner is filled in. Parsing does no I/O and never
// normalizes case or whitespace.
func ParsePathspec(input, defaultOwner string) (Pathspec, error) {
	malformed := func() (Pathspec, error) {
		return Pathspec{}, errors.New(errors.ErrCodeInvalidPathspec, "malformed pathspec: %q", input)
	}

	if strings.Count(input, ":") != 1 {
		return malformed()
	}
	location, pattern, _ := strings.Cut(input, ":")
	if pattern == "" || location == "" {
		return malformed()
	}

	switch strings.Count(location, "/") {
	case 0:
		if defaultOwner == "" {
			return malformed()
		}
		return Pathspec{Owner: defaultOwner, Repository: location, Pattern: pattern}, nil
	case 1:
		owner, repository, _ := strings.Cut(location, "/")
		if owner == "" || repository == "" {
			return malformed()
		}
		return Pathspec{Owner: owner, Repository: repository, Pattern: pattern}, nil
	default:
		return malformed()
	}
}

// String renders the pathspec back to "owner/repository:pattern".
func (p Pathspec) String() string {
	return p.Owner + "/" + p.Repository + ":" + p.Pattern
}
