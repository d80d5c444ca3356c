//go:build !linux
// +build !linux

package segment

// adviseSequential is a no-op outside Linux: Fadvise has no portable
// equivalent.
func adviseSequential(fd uintptr) {}
