//go:build linux
// +build linux

package segment

import "golang.org/x/sys/unix"

// adviseSequential hints to the kernel that the segment file is read and
// written sequentially. Best-effort: a failure here never affects
// correctness.
func adviseSequential(fd uintptr) {
	_ = unix.Fadvise(int(fd), 0, 0, unix.FADV_SEQUENTIAL)
}
