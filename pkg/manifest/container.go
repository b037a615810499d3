package manifest

// ContainerKind is the shape of a provider's dependency section.
type ContainerKind int

const (
	// KindSingular is a flat map of dependency entries.
	KindSingular ContainerKind = iota
	// KindGrouped is a map of named groups, each holding a flat map.
	KindGrouped
	// KindInvalid marks a dependencies value that fits neither shape.
	KindInvalid
)

// Container holds a provider's dependencies either flatly or under named
// groups. A section is in exactly one shape at a time; the shape is decided
// by what was on disk, or by the first dependency added. Key and group order
// follow manifest declaration order so that validation reports the first
// offender deterministically.
type Container struct {
	kind ContainerKind

	flat     map[string]Entry
	keys     []string
	groups   map[string]map[string]Entry
	grpKeys  map[string][]string
	grpNames []string

	raw any // original value for KindInvalid diagnostics
}

func newSingular() *Container {
	return &Container{kind: KindSingular, flat: make(map[string]Entry)}
}

func newGrouped() *Container {
	return &Container{
		kind:    KindGrouped,
		groups:  make(map[string]map[string]Entry),
		grpKeys: make(map[string][]string),
	}
}

func newInvalidContainer(raw any) *Container {
	return &Container{kind: KindInvalid, raw: raw}
}

// Kind returns the container's shape.
func (c *Container) Kind() ContainerKind { return c.kind }

// Keys returns the dependency keys of a singular container in declaration
// order.
func (c *Container) Keys() []string { return c.keys }

// Entry returns the entry for key in a singular container.
func (c *Container) Entry(key string) (Entry, bool) {
	e, ok := c.flat[key]
	return e, ok
}

// GroupNames returns the group names of a grouped container in declaration
// order.
func (c *Container) GroupNames() []string { return c.grpNames }

// GroupKeys returns the dependency keys of one group in declaration order.
func (c *Container) GroupKeys(group string) []string { return c.grpKeys[group] }

// GroupEntry returns the entry for key inside group.
func (c *Container) GroupEntry(group, key string) (Entry, bool) {
	g, ok := c.groups[group]
	if !ok {
		return nil, false
	}
	e, ok := g[key]
	return e, ok
}

// Len returns the total number of entries across all groups.
func (c *Container) Len() int {
	if c.kind == KindSingular {
		return len(c.flat)
	}
	n := 0
	for _, g := range c.groups {
		n += len(g)
	}
	return n
}

// Walk visits every entry in declaration order. For singular containers the
// group argument is empty.
func (c *Container) Walk(fn func(group, key string, e Entry)) {
	switch c.kind {
	case KindSingular:
		for _, k := range c.keys {
			fn("", k, c.flat[k])
		}
	case KindGrouped:
		for _, g := range c.grpNames {
			for _, k := range c.grpKeys[g] {
				fn(g, k, c.groups[g][k])
			}
		}
	}
}

func (c *Container) putFlat(key string, e Entry) {
	if _, ok := c.flat[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.flat[key] = e
}

func (c *Container) putGrouped(group, key string, e Entry) {
	g, ok := c.groups[group]
	if !ok {
		g = make(map[string]Entry)
		c.groups[group] = g
		c.grpNames = append(c.grpNames, group)
	}
	if _, ok := g[key]; !ok {
		c.grpKeys[group] = append(c.grpKeys[group], key)
	}
	g[key] = e
}

func (c *Container) deleteFlat(key string) {
	delete(c.flat, key)
	c.keys = removeString(c.keys, key)
}

// deleteGrouped removes key from group and reports whether the group became
// empty and was dropped.
func (c *Container) deleteGrouped(group, key string) bool {
	g, ok := c.groups[group]
	if !ok {
		return false
	}
	delete(g, key)
	c.grpKeys[group] = removeString(c.grpKeys[group], key)
	if len(g) == 0 {
		delete(c.groups, group)
		delete(c.grpKeys, group)
		c.grpNames = removeString(c.grpNames, group)
		return true
	}
	return false
}

func removeString(s []string, v string) []string {
	for i, x := range s {
		if x == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}
