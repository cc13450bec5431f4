// Package ferrors defines the error taxonomy every public blockfs
// operation reports failures with. It mirrors the teacher project's
// errno-wrapping DriverError, mapping each of the kinds in spec.md §7
// onto the nearest POSIX errno so a caller can still recover the numeric
// code (e.g. a FUSE adapter translating to -errno) while getting a
// descriptive message for logs.
package ferrors

import (
	"fmt"
	"syscall"
)

// DriverError wraps a POSIX errno with an optional contextual message.
type DriverError struct {
	Errno   syscall.Errno
	message string
}

// New creates a DriverError with no additional context beyond the errno's
// own description.
func New(errno syscall.Errno) *DriverError {
	return &DriverError{Errno: errno}
}

// Newf creates a DriverError with a formatted message appended to the
// errno's description.
func Newf(errno syscall.Errno, format string, args ...interface{}) *DriverError {
	return &DriverError{Errno: errno, message: fmt.Sprintf(format, args...)}
}

func (e *DriverError) Error() string {
	if e.message == "" {
		return e.Errno.Error()
	}
	return fmt.Sprintf("%s: %s", e.Errno.Error(), e.message)
}

// Is lets errors.Is(err, ferrors.ErrNoEntry) (etc.) match regardless of
// whether err carries an additional message.
func (e *DriverError) Is(target error) bool {
	other, ok := target.(*DriverError)
	if !ok {
		return false
	}
	return e.Errno == other.Errno
}

func (e *DriverError) Unwrap() error {
	return e.Errno
}

// The error kinds from spec.md §7.
var (
	ErrNoEntry      = New(syscall.ENOENT)   // path component or target does not exist
	ErrExists       = New(syscall.EEXIST)   // target already exists
	ErrNotDirectory = New(syscall.ENOTDIR)  // expected a directory, found a file
	ErrIsDirectory  = New(syscall.EISDIR)   // expected a file, found a directory
	ErrNotEmpty     = New(syscall.ENOTEMPTY) // directory has entries beyond . and ..
	ErrNoSpace      = New(syscall.ENOSPC)   // no free block, inode, or directory slot
	ErrFileTooBig   = New(syscall.EFBIG)    // requested size exceeds one block
	ErrBadSeek      = New(syscall.ESPIPE)   // read offset past end of file
	ErrDenied       = New(syscall.EACCES)   // permission bit is clear
	ErrPermDenied   = New(syscall.EPERM)    // operation forbidden on this target
	ErrInvalid      = New(syscall.EINVAL)   // out-of-range parameter
	ErrUnsupported  = New(syscall.ENOSYS)   // present for completeness, not implemented
)
