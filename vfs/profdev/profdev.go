// Package profdev implements the /dev/prof device node (defs.D_PROF):
// reading it serializes a snapshot of per-syscall sample counts as a
// pprof profile, using github.com/google/pprof/profile rather than a
// hand-rolled format, so the result opens directly in `go tool pprof`.
package profdev

import (
	"bytes"
	"sync"
	"time"

	"github.com/google/pprof/profile"

	"vortex/defs"
	"vortex/vfs"
)

// Dev accumulates syscall sample counts and serializes them as a
// pprof profile on demand.
type Dev struct {
	vfs.NopMmap
	mu      sync.Mutex
	samples map[string]int64
}

// New returns an empty profiling device.
func New() *Dev {
	return &Dev{samples: make(map[string]int64)}
}

// Record tallies one sample under name (typically a syscall name).
func (d *Dev) Record(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.samples[name]++
}

func (d *Dev) snapshot() *profile.Profile {
	d.mu.Lock()
	defer d.mu.Unlock()

	valType := &profile.ValueType{Type: "samples", Unit: "count"}
	p := &profile.Profile{
		SampleType:    []*profile.ValueType{valType},
		TimeNanos:     time.Now().UnixNano(),
		PeriodType:    valType,
		Period:        1,
	}
	fnID := uint64(1)
	locID := uint64(1)
	for name, count := range d.samples {
		fn := &profile.Function{ID: fnID, Name: name}
		loc := &profile.Location{ID: locID, Line: []profile.Line{{Function: fn}}}
		p.Function = append(p.Function, fn)
		p.Location = append(p.Location, loc)
		p.Sample = append(p.Sample, &profile.Sample{
			Location: []*profile.Location{loc},
			Value:    []int64{count},
		})
		fnID++
		locID++
	}
	return p
}

func (d *Dev) Read(buf []byte, off int64) (int, defs.Err_t) {
	var b bytes.Buffer
	if err := d.snapshot().Write(&b); err != nil {
		return 0, defs.EIO
	}
	data := b.Bytes()
	if off >= int64(len(data)) {
		return 0, 0
	}
	n := copy(buf, data[off:])
	return n, 0
}

func (d *Dev) Write(buf []byte, off int64) (int, defs.Err_t) { return 0, defs.EPERM }

func (d *Dev) Poll(events int) (int, defs.Err_t) { return events, 0 }

func (d *Dev) Ioctl(cmd uintptr, arg uintptr) (uintptr, defs.Err_t) { return 0, defs.ENOSYS }

func (d *Dev) Unlink() defs.Err_t { return defs.EPERM }

func (d *Dev) Metadata() vfs.Metadata {
	return vfs.Metadata{Name: "prof", Type: vfs.CharDevice}
}
