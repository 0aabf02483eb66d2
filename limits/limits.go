// Package limits tracks system-wide resource budgets, ported from
// biscuit's limits package. Budgets are defined for processes, vnodes,
// mmap regions and fd slots; only the fd-slot budget is drawn on (by
// proc's fd table).
package limits

import "sync/atomic"

// Sysatomic_t is an atomically-adjusted counter bounded by Given.
type Sysatomic_t struct {
	Given int64
	Taken int64
}

// Take reserves one unit, returning false if the budget is exhausted.
func (s *Sysatomic_t) Take() bool {
	for {
		cur := atomic.LoadInt64(&s.Taken)
		if cur >= s.Given {
			return false
		}
		if atomic.CompareAndSwapInt64(&s.Taken, cur, cur+1) {
			return true
		}
	}
}

// Give releases one unit back to the budget.
func (s *Sysatomic_t) Give() {
	atomic.AddInt64(&s.Taken, -1)
}

// Syslimit_t holds the system-wide resource budgets, mirroring
// biscuit's Syslimit_t fields relevant to the process runtime.
type Syslimit_t struct {
	Sysprocs Sysatomic_t
	Vnodes   Sysatomic_t
	Mmapregions Sysatomic_t
	Fds      Sysatomic_t
}

// MkSysLimit returns the default system resource budgets.
func MkSysLimit() Syslimit_t {
	return Syslimit_t{
		Sysprocs:    Sysatomic_t{Given: 1024},
		Vnodes:      Sysatomic_t{Given: 1 << 16},
		Mmapregions: Sysatomic_t{Given: 1 << 16},
		Fds:         Sysatomic_t{Given: 1 << 20},
	}
}

// Syslimit is the process-wide instance other packages consult.
var Syslimit = MkSysLimit()
