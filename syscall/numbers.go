// Package syscall implements the Linux-compatible syscall dispatcher:
// decoding a trapframe.Frame into a syscall number and arguments,
// routing to a handler, and returning a negative errno or non-negative
// result the SYSRET path writes back into RAX. Grounded on
// rimmy_kernel's sys/syscall/mod.rs dispatch match and service.rs's
// per-syscall bodies.
package syscall

// Syscall numbers, matching the Linux x86_64 table for the subset this
// kernel implements.
const (
	SYS_READ          = 0
	SYS_WRITE         = 1
	SYS_OPEN          = 2
	SYS_CLOSE         = 3
	SYS_STAT          = 4
	SYS_FSTAT         = 5
	SYS_POLL          = 7
	SYS_LSEEK         = 8
	SYS_MMAP          = 9
	SYS_MPROTECT      = 10
	SYS_MUNMAP        = 11
	SYS_BRK           = 12
	SYS_IOCTL         = 16
	SYS_READV         = 19
	SYS_WRITEV        = 20
	SYS_PREAD64       = 17
	SYS_ACCESS        = 21
	SYS_NANOSLEEP     = 35
	SYS_GETPID        = 39
	SYS_EXECVE        = 59
	SYS_EXIT          = 60
	SYS_UNAME         = 63
	SYS_FCNTL         = 72
	SYS_GETCWD        = 79
	SYS_CHDIR         = 80
	SYS_MKDIR         = 83
	SYS_RMDIR         = 84
	SYS_UNLINK        = 87
	SYS_GETDENTS64    = 217
	SYS_TIME          = 201
	SYS_CLOCK_GETTIME = 228
	SYS_EXIT_GROUP    = 231
	SYS_ARCH_PRCTL    = 158
	SYS_SET_TID_ADDRESS = 218
	SYS_OPENAT        = 257
	SYS_UTIMENSAT     = 280
	SYS_PRLIMIT64     = 302
)
