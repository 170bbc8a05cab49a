package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// DiskUsageFunc reports used and total bytes of the filesystem holding path.
type DiskUsageFunc func(path string) (used, total uint64, err error)

// Guard refuses to let logging start on a nearly full filesystem.
type Guard struct {
	Path             string
	ThresholdPercent float64
	Usage            DiskUsageFunc
}

// Check fails with ErrInsufficientStorage when usage is at or above the
// threshold. The usage snapshot is returned either way.
func (g Guard) Check() (Usage, error) {
	usage := g.Usage
	if usage == nil {
		usage = DiskUsage
	}

	path := existingAncestor(g.Path)
	used, total, err := usage(path)
	if err != nil {
		return Usage{}, errors.Wrapf(err, "read disk usage of %s", path)
	}
	du := Usage{Used: used, Total: total}
	if total == 0 {
		return du, errors.Wrapf(ErrInsufficientStorage, "filesystem of %s reports zero capacity", path)
	}

	if pct := du.PercentUsed(); pct >= g.ThresholdPercent {
		return du, errors.Wrapf(ErrInsufficientStorage, "disk usage %.2f%% at or above threshold %.2f%%",
			pct, g.ThresholdPercent)
	}
	return du, nil
}

func existingAncestor(path string) string {
	if path == "" {
		path = "."
	}
	p := filepath.Clean(path)
	for {
		if _, err := os.Stat(p); err == nil {
			return p
		}
		parent := filepath.Dir(p)
		if parent == p {
			return p
		}
		p = parent
	}
}

// Usage is a snapshot of a filesystem's capacity.
type Usage struct {
	Used  uint64
	Total uint64
}

func (u Usage) PercentUsed() float64 {
	if u.Total == 0 {
		return 0
	}
	return float64(u.Used) / float64(u.Total) * 100
}

func (u Usage) String() string {
	GB := float64(1024 * 1024 * 1024)

	return fmt.Sprintf("total: %.2fGB, avail: %.2fGB, used: %.2fGB",
		float64(u.Total)/GB,
		float64(u.Total-u.Used)/GB,
		float64(u.Used)/GB)
}
