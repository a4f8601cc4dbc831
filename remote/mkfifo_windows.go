//go:build windows

package remote

import "errors"

func mkfifo(path string) error {
	return errors.New("remote: fifo restore not supported on this platform")
}
