// Package stat implements the struct stat wire layout fstat/stat copy
// back to user space, ported from biscuit's stat package.
package stat

import "unsafe"

// Stat_t is laid out so Bytes can be copied directly into a user
// buffer as struct stat's on-wire representation.
type Stat_t struct {
	_dev    uint64
	_ino    uint64
	_mode   uint32
	_nlink  uint32
	_uid    uint32
	_gid    uint32
	_rdev   uint64
	_size   int64
	_blocks int64
	_m_sec  int64
	_m_nsec int64
}

func (s *Stat_t) Wdev(d uint64)    { s._dev = d }
func (s *Stat_t) Wino(i uint64)    { s._ino = i }
func (s *Stat_t) Wmode(m uint32)   { s._mode = m }
func (s *Stat_t) Wsize(sz int64)   { s._size = sz }
func (s *Stat_t) Wrdev(d uint64)   { s._rdev = d }
func (s *Stat_t) Wmtime(sec, nsec int64) {
	s._m_sec = sec
	s._m_nsec = nsec
}

func (s *Stat_t) Mode() uint32 { return s._mode }
func (s *Stat_t) Size() int64  { return s._size }
func (s *Stat_t) Rdev() uint64 { return s._rdev }
func (s *Stat_t) Ino() uint64  { return s._ino }

// Bytes returns the raw byte view of the struct, ready to copy to user
// space as struct stat.
func (s *Stat_t) Bytes() []uint8 {
	const n = unsafe.Sizeof(Stat_t{})
	return (*(*[n]uint8)(unsafe.Pointer(s)))[:]
}

// Mode bits this kernel sets on Stat_t.Wmode.
const (
	S_IFREG = 0o100000
	S_IFDIR = 0o040000
	S_IFCHR = 0o020000
)
