package deps

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// statfsFunc reports (total, free) bytes for the filesystem holding path.
// Overridable in tests.
type statfsFunc func(path string) (uint64, uint64, error)

var statfs statfsFunc = realStatfs

// FreeSpace returns the number of bytes available to unprivileged writers on
// the filesystem containing path.
func FreeSpace(path string) (uint64, error) {
	_, free, err := statfs(path)
	if err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	return free, nil
}

// CheckFreeSpace verifies the work area has at least minGiB gibibytes free
// before the speech fallback downloads audio into it.
func CheckFreeSpace(name, path string, minGiB float64) Status {
	free, err := FreeSpace(path)
	if err != nil {
		return Status{Name: name, Command: path, Detail: err.Error()}
	}
	freeGiB := float64(free) / (1 << 30)
	if freeGiB < minGiB {
		return Status{
			Name:    name,
			Command: path,
			Detail:  fmt.Sprintf("%.1f GiB free, need %.1f GiB", freeGiB, minGiB),
		}
	}
	return Status{
		Name:      name,
		Command:   path,
		Available: true,
		Detail:    fmt.Sprintf("%.1f GiB free", freeGiB),
	}
}

func realStatfs(path string) (uint64, uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bavail * uint64(stat.Bsize)
	return total, free, nil
}
