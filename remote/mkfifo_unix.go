//go:build !windows

package remote

import "syscall"

func mkfifo(path string) error {
	return syscall.Mkfifo(path, 0644)
}
