package proc

import (
	"sync"

	"vortex/defs"
)

// Table is the process table: every live process keyed by pid, plus
// the pid allocator. Grounded on rimmy's PROCESS_TABLE/NEXT_PID.
type Table struct {
	mu       sync.Mutex
	next     defs.Pid_t
	procs    map[defs.Pid_t]*Process
	execLink map[defs.Pid_t]defs.Pid_t // child pid -> parent pid it will resume
}

// NewTable returns an empty process table; pid 1 is reserved the way
// rimmy reserves it for the first spawned process.
func NewTable() *Table {
	return &Table{
		next:     1,
		procs:    make(map[defs.Pid_t]*Process),
		execLink: make(map[defs.Pid_t]defs.Pid_t),
	}
}

// Alloc reserves the next pid without installing a process for it yet.
func (t *Table) Alloc() defs.Pid_t {
	t.mu.Lock()
	defer t.mu.Unlock()
	pid := t.next
	t.next++
	return pid
}

// Add installs p in the table under p.Pid.
func (t *Table) Add(p *Process) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.procs[p.Pid] = p
}

// Get looks up a process by pid.
func (t *Table) Get(pid defs.Pid_t) (*Process, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.procs[pid]
	return p, ok
}

// Remove deletes pid from the table, as on process exit.
func (t *Table) Remove(pid defs.Pid_t) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.procs, pid)
	delete(t.execLink, pid)
}

// Exec installs newProc as a freshly loaded image and records that it
// should be resumed in place of caller.
//
// This intentionally does not implement POSIX execve semantics, where
// the calling process's own pid and task keep running with a replaced
// image. Instead, matching rimmy_kernel's process_table.run(p) push
// model, exec always allocates a brand-new pid for the loaded image and
// links it back to the caller; the caller's pid is retained in the
// table (not replaced) until the new pid exits, at which point the
// caller resumes. Callers that depend on getpid() returning the same
// value across execve will observe a different value here. This is a
// deliberate, spec-documented deviation, not a bug: preserving it keeps
// the process runtime's exec-chain behavior faithful to the system
// being modeled rather than "fixing" it into ordinary POSIX execve.
func (t *Table) Exec(caller *Process, newProc *Process) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.procs[newProc.Pid] = newProc
	t.execLink[newProc.Pid] = caller.Pid
}

// ResumeAfterExit reports which pid (if any) should be scheduled after
// pid exits, following an exec chain link back to its caller.
func (t *Table) ResumeAfterExit(pid defs.Pid_t) (defs.Pid_t, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	parent, ok := t.execLink[pid]
	return parent, ok
}
