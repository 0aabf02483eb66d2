package clock

import "golang.org/x/sys/unix"

// unixNow reads the host's CLOCK_REALTIME/CLOCK_MONOTONIC the way
// System does, via golang.org/x/sys/unix rather than time.Now/
// time.Since, since this is the layer meant to stand in for a real
// CMOS/PIT read and unix.ClockGettime is the closest analogue
// available in a portable Go program.
func unixNow(id ClockID) Timespec {
	var clk int32
	switch id {
	case CLOCK_MONOTONIC:
		clk = unix.CLOCK_MONOTONIC
	default:
		clk = unix.CLOCK_REALTIME
	}
	var ts unix.Timespec
	if err := unix.ClockGettime(clk, &ts); err != nil {
		return Timespec{}
	}
	sec := ts.Sec
	if id != CLOCK_MONOTONIC {
		// The wall clock this kernel exposes is backed by a 32-bit
		// seconds-since-epoch RTC register, so it wraps in 2038 the
		// same way the hardware it models does; that wrap is
		// deliberately preserved rather than widened.
		sec = int64(int32(sec))
	}
	return Timespec{Sec: sec, Nsec: int64(ts.Nsec)}
}
