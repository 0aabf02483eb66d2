// Package res implements non-blocking reservation of scarce per-process
// resources (kernel heap used while staging a user copy, fd-table
// slots), ported from biscuit's res package. Unlike limits, which
// tracks a system-wide budget, res tracks a call's local reservation so
// it can be released exactly once regardless of which return path is
// taken.
package res

import (
	"vortex/bounds"
	"vortex/defs"
)

// Res_t tracks a single outstanding reservation.
type Res_t struct {
	tag   bounds.Bound_t
	units int
	held  bool
}

// Resadd_noblock reserves units under tag without blocking. No per-tag
// budget is enforced, so it always succeeds and never returns ENOHEAP.
func Resadd_noblock(tag bounds.Bound_t, units int) (Res_t, defs.Err_t) {
	if units < 0 {
		panic("negative reservation")
	}
	// The reference kernel has no hard per-tag ceiling for the copy
	// staging buffers this guards; the hook exists so a future budget
	// can be wired in without touching every call site.
	return Res_t{tag: tag, units: units, held: true}, 0
}

// Release gives back a reservation; safe to call on a zero Res_t or to
// call twice.
func (r *Res_t) Release() {
	if !r.held {
		return
	}
	r.held = false
}
