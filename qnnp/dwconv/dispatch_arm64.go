//go:build arm64

package dwconv

import "golang.org/x/sys/cpu"

func preferredCR() int {
	if cpu.ARM64.HasASIMD {
		return 8
	}
	return 1
}
