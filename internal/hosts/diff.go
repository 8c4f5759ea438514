package hosts

import (
	"github.com/samber/lo"
)

// ReservedHostnames are never added or modified by a merge.
var ReservedHostnames = []string{"localhost", "broadcasthost"}

// Change is an address replacement for a hostname present on both sides.
type Change struct {
	Old string
	New string
}

// Diff holds what a remote document would add to or change in a local one.
type Diff struct {
	Additions     *OrderedMap[string, string]
	Modifications *OrderedMap[string, Change]
}

// Empty reports whether the diff has nothing to apply.
func (d *Diff) Empty() bool {
	return d == nil || (d.Additions.Len() == 0 && d.Modifications.Len() == 0)
}

// Compute returns the additions and modifications that bring local up to date
// with remote. Hostnames only present in local are left alone. Reserved
// hostnames and any extra exclusions are skipped. Addresses are compared as
// plain strings.
func Compute(local, remote *Document, exclude ...string) *Diff {
	diff := &Diff{
		Additions:     NewOrderedMap[string, string](),
		Modifications: NewOrderedMap[string, Change](),
	}
	remote.Entries.ForEach(func(host, addr string) {
		if lo.Contains(ReservedHostnames, host) || lo.Contains(exclude, host) {
			return
		}
		old, ok := local.Entries.Get(host)
		switch {
		case !ok:
			diff.Additions.Set(host, addr)
		case old != addr:
			diff.Modifications.Set(host, Change{Old: old, New: addr})
		}
	})
	return diff
}

// Merge applies diff to local in place: modifications first, then additions.
// Existing hostnames keep their position; new ones are appended in the order
// the diff holds them.
func Merge(local *Document, diff *Diff) {
	if diff == nil {
		return
	}
	diff.Modifications.ForEach(func(host string, c Change) {
		local.Entries.Set(host, c.New)
	})
	diff.Additions.ForEach(local.Entries.Set)
}
