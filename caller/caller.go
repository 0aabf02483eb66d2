// Package caller provides lightweight call-site dedup used by debug
// logging paths, ported from biscuit's caller package.
package caller

import "sync"

// Distinct_caller_t deduplicates program counters seen at a call site,
// so repeated log spam from the same caller is reported once.
type Distinct_caller_t struct {
	sync.Mutex
	pchash map[uintptr]bool
}

// Distinct reports whether pc has not been seen before, recording it.
func (d *Distinct_caller_t) Distinct(pc uintptr) bool {
	d.Lock()
	defer d.Unlock()
	if d.pchash == nil {
		d.pchash = make(map[uintptr]bool)
	}
	if d.pchash[pc] {
		return false
	}
	d.pchash[pc] = true
	return true
}

// Len returns the number of distinct callers recorded so far.
func (d *Distinct_caller_t) Len() int {
	d.Lock()
	defer d.Unlock()
	return len(d.pchash)
}
