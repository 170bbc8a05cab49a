//go:build !unix

package storage

import "github.com/pkg/errors"

// DiskUsage is not available on this platform; supply a DiskUsageFunc instead.
func DiskUsage(path string) (used, total uint64, err error) {
	return 0, 0, errors.Errorf("disk usage of %s: unsupported platform", path)
}
