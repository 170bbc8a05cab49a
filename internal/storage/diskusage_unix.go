//go:build unix

package storage

import "golang.org/x/sys/unix"

// DiskUsage reports the filesystem usage of path as seen by unprivileged
// writers: blocks reserved for root count as used.
func DiskUsage(path string) (used, total uint64, err error) {
	var fs unix.Statfs_t
	if err := unix.Statfs(path, &fs); err != nil {
		return 0, 0, err
	}
	total = uint64(fs.Blocks) * uint64(fs.Bsize)
	avail := uint64(fs.Bavail) * uint64(fs.Bsize)
	return total - avail, total, nil
}
