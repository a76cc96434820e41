// Package v9kfs implements a filesystem engine for Victor 9000 and IBM PC
// FAT12 floppy and hard-disk images, plus read-only support for CP/M-86
// floppies.
package v9kfs

import (
	"fmt"
	"syscall"
)

// Kind identifies a category of failure the engine can report. It mirrors the
// error taxonomy a caller needs to make a decision (retry, surface to a user,
// treat as corruption) without parsing message text.
type Kind int

const (
	KindUnknownFormat Kind = iota
	KindCorruptLabel
	KindCorruptBootSector
	KindCorruptChain
	KindCrossLink
	KindNotFound
	KindNotADirectory
	KindIsADirectory
	KindInvalidName
	KindExistsAndNoOverwrite
	KindOutOfSpace
	KindDirectoryFull
	KindPartitionRequired
	KindPartitionOutOfRange
	KindAttributeProtected
	KindReadOnlyVolume
	KindAmbiguous
	KindIOError
)

// defaultMessage and errnoFor give every Kind a human-readable default
// message and the nearest POSIX errno, the latter used only to produce
// sensible CLI exit codes; the core never inspects errno itself.
var defaultMessage = map[Kind]string{
	KindUnknownFormat:        "image does not match any known format",
	KindCorruptLabel:         "disk label is corrupt",
	KindCorruptBootSector:    "boot sector is corrupt",
	KindCorruptChain:         "cluster chain is corrupt",
	KindCrossLink:            "cross-linked clusters detected",
	KindNotFound:             "no such file or directory",
	KindNotADirectory:        "not a directory",
	KindIsADirectory:         "is a directory",
	KindInvalidName:          "invalid 8.3 file name",
	KindExistsAndNoOverwrite: "destination exists and overwrite was not requested",
	KindOutOfSpace:           "not enough free space on volume",
	KindDirectoryFull:        "directory has no free entries",
	KindPartitionRequired:    "path must name a partition index for this image",
	KindPartitionOutOfRange:  "partition index out of range",
	KindAttributeProtected:   "file is read-only",
	KindReadOnlyVolume:       "volume does not support write operations",
	KindAmbiguous:            "more than one directory entry matches",
	KindIOError:              "I/O error against backing image",
}

var errnoFor = map[Kind]syscall.Errno{
	KindUnknownFormat:        syscall.EMEDIUMTYPE,
	KindCorruptLabel:         syscall.EUCLEAN,
	KindCorruptBootSector:    syscall.EUCLEAN,
	KindCorruptChain:         syscall.EUCLEAN,
	KindCrossLink:            syscall.EUCLEAN,
	KindNotFound:             syscall.ENOENT,
	KindNotADirectory:        syscall.ENOTDIR,
	KindIsADirectory:         syscall.EISDIR,
	KindInvalidName:          syscall.EINVAL,
	KindExistsAndNoOverwrite: syscall.EEXIST,
	KindOutOfSpace:           syscall.ENOSPC,
	KindDirectoryFull:        syscall.ENOSPC,
	KindPartitionRequired:    syscall.EINVAL,
	KindPartitionOutOfRange:  syscall.EINVAL,
	KindAttributeProtected:   syscall.EACCES,
	KindReadOnlyVolume:       syscall.EROFS,
	KindAmbiguous:            syscall.EUCLEAN,
	KindIOError:              syscall.EIO,
}

// Error is the error type returned by every operation in this module. It
// carries a Kind so callers can switch on the failure category with
// errors.Is, and supports chaining extra context onto the default
// message.
type Error struct {
	Kind          Kind
	message       string
	originalError error
}

func (e *Error) Error() string {
	if e.message != "" {
		return e.message
	}
	return defaultMessage[e.Kind]
}

func (e *Error) Unwrap() error {
	return e.originalError
}

// Is lets errors.Is(err, ErrNotFound) style comparisons match any *Error with
// the same Kind, whatever its message.
func (e *Error) Is(target error) bool {
	if other, ok := target.(*Error); ok {
		return other.Kind == e.Kind
	}
	return false
}

// Errno returns the POSIX errno code nearest in meaning to this error, for
// collaborators (e.g. a CLI) that need to map failures to exit codes.
func (e *Error) Errno() syscall.Errno {
	return errnoFor[e.Kind]
}

// New creates an *Error of the given Kind with its default message.
func New(kind Kind) *Error {
	return &Error{Kind: kind, message: defaultMessage[kind]}
}

// WithMessage returns a copy of the error with additional context appended
// to its message.
func (e *Error) WithMessage(format string, args ...any) *Error {
	return &Error{
		Kind:          e.Kind,
		message:       fmt.Sprintf("%s: %s", e.Error(), fmt.Sprintf(format, args...)),
		originalError: e.originalError,
	}
}

// Wrap returns a copy of the error that wraps another error as its cause.
func (e *Error) Wrap(err error) *Error {
	return &Error{
		Kind:          e.Kind,
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: err,
	}
}

// Sentinel errors for every failure category. Callers compare with
// errors.Is(err, v9kfs.ErrNotFound) etc.
var (
	ErrUnknownFormat        = New(KindUnknownFormat)
	ErrCorruptLabel         = New(KindCorruptLabel)
	ErrCorruptBootSector    = New(KindCorruptBootSector)
	ErrCorruptChain         = New(KindCorruptChain)
	ErrCrossLink            = New(KindCrossLink)
	ErrNotFound             = New(KindNotFound)
	ErrNotADirectory        = New(KindNotADirectory)
	ErrIsADirectory         = New(KindIsADirectory)
	ErrInvalidName          = New(KindInvalidName)
	ErrExistsAndNoOverwrite = New(KindExistsAndNoOverwrite)
	ErrOutOfSpace           = New(KindOutOfSpace)
	ErrDirectoryFull        = New(KindDirectoryFull)
	ErrPartitionRequired    = New(KindPartitionRequired)
	ErrPartitionOutOfRange  = New(KindPartitionOutOfRange)
	ErrAttributeProtected   = New(KindAttributeProtected)
	ErrReadOnlyVolume       = New(KindReadOnlyVolume)
	ErrAmbiguous            = New(KindAmbiguous)
	ErrIOError              = New(KindIOError)
)
