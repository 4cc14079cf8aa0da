//go:build !linux

package scheduler

// AvailableMemory is not implemented on this platform.
func AvailableMemory() (int64, bool) {
	return 0, false
}
