// Package bpath implements the path joining and normalization rules the
// syscall layer uses to resolve openat/chdir/mkdir paths, grounded on
// rimmy_kernel/src/sys/syscall/service.rs's join_paths/normalize_path.
package bpath

import (
	"strings"

	"vortex/ustr"
)

// Join joins rel onto base the way a dirfd-relative lookup does: an
// absolute rel replaces base outright, "." or "" leaves base unchanged.
func Join(base, rel string) string {
	if rel == "" || rel == "." {
		return base
	}
	if strings.HasPrefix(rel, "/") {
		return rel
	}
	if base == "/" {
		return "/" + strings.TrimPrefix(rel, "/")
	}
	return strings.TrimSuffix(base, "/") + "/" + rel
}

// Normalize collapses "." and ".." components and returns an absolute,
// slash-separated path with no trailing slash (except "/" itself).
func Normalize(p string) string {
	segs := strings.Split(p, "/")
	out := make([]string, 0, len(segs))
	for _, seg := range segs {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, seg)
		}
	}
	if len(out) == 0 {
		return "/"
	}
	return "/" + strings.Join(out, "/")
}

// Canonicalize is Normalize rendered through the ustr.Ustr type biscuit
// passes path components around in.
func Canonicalize(p ustr.Ustr) ustr.Ustr {
	return ustr.Ustr(Normalize(p.String()))
}

// Parent returns the parent directory of path ("/" for a top-level
// entry, "." if path has no slash at all).
func Parent(path string) string {
	p := path
	if p != "/" && strings.HasSuffix(p, "/") {
		p = p[:len(p)-1]
	}
	idx := strings.LastIndexByte(p, '/')
	switch {
	case idx < 0:
		return "."
	case idx == 0:
		return "/"
	default:
		return p[:idx]
	}
}

// SplitParentName splits path into its containing directory and final
// component, following service.rs's split_parent_name.
func SplitParentName(path string) (dir, name string) {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return ".", path
	}
	if idx == 0 {
		return "/", path[1:]
	}
	return path[:idx], path[idx+1:]
}
