package journal

import "errors"

var (
	// ErrInvalidAsqn is returned by Append(payload, asqn) when asqn does
	// not exceed the last record's asqn, while that asqn was specified.
	ErrInvalidAsqn = errors.New("journal: invalid asqn")
	// ErrEntryTooLarge is returned when a payload does not fit even in a
	// freshly rolled, empty segment.
	ErrEntryTooLarge = errors.New("journal: entry too large for segment")
	// ErrCorruptJournal is returned by Open when the segment descriptor
	// chain on disk has a gap or an overlap.
	ErrCorruptJournal = errors.New("journal: corrupt segment chain")
	// ErrClosed is returned by any operation against a closed journal or
	// a reader whose journal has since been reset, reopened, or closed.
	ErrClosed = errors.New("journal: closed")
	// ErrEmpty is returned by SeekToLast against a journal with no records.
	ErrEmpty = errors.New("journal: empty")
)
