package remote

import "errors"

// ErrOperationFailed wraps a remote-side I/O failure: a failed listing,
// read, write, or connection attempt. The walker records a failed file
// read or subdirectory listing in Backup.Errors and drops that entry;
// only a failure listing the backup's root aborts the backup.
var ErrOperationFailed = errors.New("remote: operation failed")
