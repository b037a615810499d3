package manifest

import (
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/sink-tools/sink/pkg/errors"
)

// decode builds the typed model from raw TOML text using BurntSushi/toml
// primitives, so that dependency entries can be classified value by value
// instead of failing the whole file on the first unusual shape.
func decode(text string) (*Manifest, error) {
	var raw map[string]toml.Primitive
	md, err := toml.Decode(text, &raw)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "malformed TOML")
	}

	m := &Manifest{providers: make(map[string]*Provider)}

	if prim, ok := raw[keyDefaultOwner]; ok {
		if err := md.PrimitiveDecode(prim, &m.DefaultOwner); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "%s must be a string", keyDefaultOwner)
		}
	}
	if prim, ok := raw[keyDefaultGroup]; ok {
		if err := md.PrimitiveDecode(prim, &m.DefaultGroup); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "%s must be a string", keyDefaultGroup)
		}
	}
	if prim, ok := raw[keyIncludes]; ok {
		if err := md.PrimitiveDecode(prim, &m.Includes); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "%s must be an array of paths", keyIncludes)
		}
	}

	for _, section := range childKeys(md, raw) {
		switch section {
		case keyDefaultOwner, keyDefaultGroup, keyIncludes:
			continue
		}
		p, err := decodeProvider(md, section, raw[section], m.DefaultOwner)
		if err != nil {
			return nil, err
		}
		m.providers[section] = p
		m.providerOrder = append(m.providerOrder, section)
	}

	return m, nil
}

func decodeProvider(md toml.MetaData, section string, prim toml.Primitive, globalOwner string) (*Provider, error) {
	var sec map[string]toml.Primitive
	if err := md.PrimitiveDecode(prim, &sec); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "top-level key %q must be a provider table", section)
	}

	p := &Provider{Section: section}
	for key, dst := range map[string]*string{
		keyProvider:          &p.Name,
		keyDefaultGroup:      &p.DefaultGroup,
		keyDefaultOwner:      &p.DefaultOwner,
		keyDefaultRepository: &p.DefaultRepository,
	} {
		if sp, ok := sec[key]; ok {
			if err := md.PrimitiveDecode(sp, dst); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "%s.%s must be a string", section, key)
			}
		}
	}

	owner := p.DefaultOwner
	if owner == "" {
		owner = globalOwner
	}
	if dp, ok := sec[keyDependencies]; ok {
		p.Dependencies = decodeContainer(md, section, dp, owner)
	}
	return p, nil
}

// decodeContainer classifies a dependencies table as singular or grouped.
// A table value counts as an entry when it carries at least one record key;
// otherwise it is a group. All entries means singular, all groups means
// grouped, a mix (or a non-table value) is an invalid container. An empty
// table decides nothing and yields no container, leaving the shape to the
// first added dependency.
func decodeContainer(md toml.MetaData, section string, prim toml.Primitive, defaultOwner string) *Container {
	var tbl map[string]toml.Primitive
	if err := md.PrimitiveDecode(prim, &tbl); err != nil {
		return newInvalidContainer(primValue(md, prim))
	}
	if len(tbl) == 0 {
		return nil
	}

	type member struct {
		key   string
		entry Entry // nil for groups
		group map[string]Entry
		order []string
	}

	var members []member
	var entryCount, groupCount int

	for _, key := range orderedKeys(tbl, childKeys(md, nil, section, keyDependencies)) {
		vp := tbl[key]

		var s string
		if md.PrimitiveDecode(vp, &s) == nil {
			members = append(members, member{key: key, entry: VersionOnly{Version: ParseVersion(s)}})
			entryCount++
			continue
		}

		var sub map[string]toml.Primitive
		if md.PrimitiveDecode(vp, &sub) != nil {
			members = append(members, member{key: key, entry: Invalid{Raw: primValue(md, vp)}})
			entryCount++
			continue
		}

		if hasRecordKey(sub) {
			members = append(members, member{key: key, entry: decodeRecord(md, vp, sub, defaultOwner)})
			entryCount++
			continue
		}

		g := make(map[string]Entry, len(sub))
		order := orderedKeys(sub, childKeys(md, nil, section, keyDependencies, key))
		for _, gk := range order {
			g[gk] = decodeGroupEntry(md, sub[gk], defaultOwner)
		}
		members = append(members, member{key: key, group: g, order: order})
		groupCount++
	}

	if entryCount > 0 && groupCount > 0 {
		return newInvalidContainer(primValue(md, prim))
	}

	if groupCount > 0 {
		c := newGrouped()
		for _, mb := range members {
			for _, gk := range mb.order {
				c.putGrouped(mb.key, gk, mb.group[gk])
			}
			if len(mb.order) == 0 {
				// Keep declared empty groups addressable.
				c.groups[mb.key] = map[string]Entry{}
				c.grpNames = append(c.grpNames, mb.key)
			}
		}
		return c
	}

	c := newSingular()
	for _, mb := range members {
		c.putFlat(mb.key, mb.entry)
	}
	return c
}

// decodeGroupEntry decodes one value inside a named group. Shorthand strings
// are tried first; only tables are tried as full records. This ordering is
// load-bearing: a bare string must never be read as a degenerate record.
func decodeGroupEntry(md toml.MetaData, prim toml.Primitive, defaultOwner string) Entry {
	var s string
	if md.PrimitiveDecode(prim, &s) == nil {
		return VersionOnly{Version: ParseVersion(s)}
	}
	var sub map[string]toml.Primitive
	if md.PrimitiveDecode(prim, &sub) != nil {
		return Invalid{Raw: primValue(md, prim)}
	}
	return decodeRecord(md, prim, sub, defaultOwner)
}

// decodeRecord decodes a fully specified dependency table. Any structural
// mismatch (unknown key, wrong type, missing or malformed pathspec) yields
// an Invalid entry so validation can report it without failing the parse.
func decodeRecord(md toml.MetaData, prim toml.Primitive, sub map[string]toml.Primitive, defaultOwner string) Entry {
	invalid := func() Entry { return Invalid{Raw: primValue(md, prim)} }

	for key := range sub {
		switch key {
		case keyRepository, keyOrigin, keyVersion, keyDestination, keyGitignore:
		default:
			return invalid()
		}
	}

	var rawSpec string
	if sp, ok := sub[keyRepository]; ok {
		if md.PrimitiveDecode(sp, &rawSpec) != nil {
			return invalid()
		}
	} else if sp, ok := sub[keyOrigin]; ok {
		if md.PrimitiveDecode(sp, &rawSpec) != nil {
			return invalid()
		}
	} else {
		return invalid()
	}

	spec, err := ParsePathspec(rawSpec, defaultOwner)
	if err != nil {
		return invalid()
	}

	dep := GitHubDependency{
		Pathspec:    spec,
		Destination: DefaultDestination,
		Version:     Latest(),
		Gitignore:   true,
	}

	if vp, ok := sub[keyVersion]; ok {
		var s string
		if md.PrimitiveDecode(vp, &s) != nil {
			return invalid()
		}
		dep.Version = ParseVersion(s)
	}
	if dp, ok := sub[keyDestination]; ok {
		var s string
		if md.PrimitiveDecode(dp, &s) != nil {
			return invalid()
		}
		if errors.ValidateDestination(s) != nil {
			return invalid()
		}
		dep.Destination = s
	}
	if gp, ok := sub[keyGitignore]; ok {
		var b bool
		if md.PrimitiveDecode(gp, &b) != nil {
			return invalid()
		}
		dep.Gitignore = b
	}

	return Full{Dependency: dep}
}

func hasRecordKey(tbl map[string]toml.Primitive) bool {
	for _, key := range [...]string{keyRepository, keyOrigin, keyVersion, keyDestination, keyGitignore} {
		if _, ok := tbl[key]; ok {
			return true
		}
	}
	return false
}

// childKeys returns the direct child key names under prefix in declaration
// order, derived from the decoder metadata. With a non-nil root map and an
// empty prefix it returns the top-level key order.
func childKeys(md toml.MetaData, root map[string]toml.Primitive, prefix ...string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, k := range md.Keys() {
		if len(k) != len(prefix)+1 {
			continue
		}
		match := true
		for i := range prefix {
			if k[i] != prefix[i] {
				match = false
				break
			}
		}
		if !match {
			continue
		}
		name := k[len(prefix)]
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}

	if root != nil {
		// Defensive: include any key the metadata did not surface.
		var missing []string
		for name := range root {
			if !seen[name] {
				missing = append(missing, name)
			}
		}
		sort.Strings(missing)
		out = append(out, missing...)
	}
	return out
}

// orderedKeys filters order down to keys present in tbl, appending any table
// key the order list misses.
func orderedKeys(tbl map[string]toml.Primitive, order []string) []string {
	out := make([]string, 0, len(tbl))
	seen := make(map[string]bool, len(tbl))
	for _, k := range order {
		if _, ok := tbl[k]; ok && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	var missing []string
	for k := range tbl {
		if !seen[k] {
			missing = append(missing, k)
		}
	}
	sort.Strings(missing)
	return append(out, missing...)
}

func primValue(md toml.MetaData, prim toml.Primitive) any {
	var v any
	_ = md.PrimitiveDecode(prim, &v)
	return v
}
