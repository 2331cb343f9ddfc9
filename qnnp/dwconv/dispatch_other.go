//go:build !amd64 && !arm64

package dwconv

func preferredCR() int {
	return 1
}
