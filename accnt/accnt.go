// Package accnt tracks per-process CPU accounting, ported from
// biscuit's accnt package.
package accnt

import "sync"

// Accnt_t accumulates user/system nanoseconds spent by a process.
type Accnt_t struct {
	sync.Mutex
	Userns int64
	Sysns  int64
}

// Utadd adds d user-mode nanoseconds.
func (a *Accnt_t) Utadd(d int64) {
	a.Lock()
	a.Userns += d
	a.Unlock()
}

// Systadd adds d system-mode nanoseconds.
func (a *Accnt_t) Systadd(d int64) {
	a.Lock()
	a.Sysns += d
	a.Unlock()
}

// Now returns the total accounted nanoseconds.
func (a *Accnt_t) Now() int64 {
	a.Lock()
	defer a.Unlock()
	return a.Userns + a.Sysns
}
