//go:build amd64

package dwconv

import "golang.org/x/sys/cpu"

// SSE2 is baseline for amd64, so 8-lane blocks are always preferred there.
// The feature check keeps the selection honest if the baseline ever changes.
func preferredCR() int {
	if cpu.X86.HasSSE2 {
		return 8
	}
	return 1
}
