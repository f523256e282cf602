//go:build linux || darwin

package filesystem

import "golang.org/x/sys/unix"

func diskUsage(root string) (total, free uint64) {
	var st unix.Statfs_t
	if err := unix.Statfs(root, &st); err != nil {
		return 0, 0
	}
	bsize := uint64(st.Bsize)
	return st.Blocks * bsize, st.Bavail * bsize
}
