package manifest

// Version literals with reserved meaning. Any other string is an explicit
// release tag. Matching is case-sensitive and never normalized.
const (
	literalLatest     = "latest"
	literalPrerelease = "prerelease"
)

type versionKind int

const (
	versionLatest versionKind = iota
	versionPrerelease
	versionTag
)

// Version selects which release of a dependency to install: the latest stable
// release, the latest prerelease, or an explicit tag. The zero value is
// Latest.
type Version struct {
	kind versionKind
	tag  string
}

// Latest selects the most recent stable release.
func Latest() Version { return Version{kind: versionLatest} }

// Prerelease selects the most recent prerelease.
func Prerelease() Version { return Version{kind: versionPrerelease} }

// Tag selects the release with the given tag. The tag is kept verbatim; no
// particular tag syntax is assumed.
func Tag(tag string) Version { return Version{kind: versionTag, tag: tag} }

// ParseVersion parses a version selector string. It is total: any string
// other than the two reserved literals becomes a Tag.
func ParseVersion(s string) Version {
	switch s {
	case literalLatest:
		return Latest()
	case literalPrerelease:
		return Prerelease()
	default:
		return Tag(s)
	}
}

// String is the exact inverse of ParseVersion.
func (v Version) String() string {
	switch v.kind {
	case versionLatest:
		return literalLatest
	case versionPrerelease:
		return literalPrerelease
	default:
		return v.tag
	}
}

// IsLatest reports whether v selects the latest stable release.
func (v Version) IsLatest() bool { return v.kind == versionLatest }

// IsPrerelease reports whether v selects the latest prerelease.
func (v Version) IsPrerelease() bool { return v.kind == versionPrerelease }

// IsTag reports whether v selects an explicit tag.
func (v Version) IsTag() bool { return v.kind == versionTag }

// TagName returns the explicit tag, or "" when v is not a tag selector.
func (v Version) TagName() string { return v.tag }
