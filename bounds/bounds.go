// Package bounds tags call sites that are subject to a resource budget,
// ported from biscuit's bounds package. The tag is recorded in the
// reservation res.Resadd_noblock returns; no per-tag budget is checked.
package bounds

// Bound_t names a resource-budget tag.
type Bound_t int

// Budget tags used by the address-space and fd-table packages.
const (
	B_VM_USERDMAP8_INNER Bound_t = iota
	B_VM_MKUSERBUF
	B_FD_INSTALL_FD_ENTRY
)

// Bounds returns the tag unchanged; it exists so call sites read the
// same way biscuit's bounds.Bounds(bounds.B_FOO) calls do.
func Bounds(b Bound_t) Bound_t { return b }
