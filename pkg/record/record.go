// Package record defines the in-memory representation of a single journal
// record and the deterministic wire codec used to turn it into the opaque
// payload bytes that the frame codec (see encoding.go) checksums and frames.
package record

import "errors"

// UnspecifiedAsqn is the sentinel value of Asqn meaning "not supplied by the
// caller". It is distinct from any legal application sequence number.
const UnspecifiedAsqn int64 = -1

// ErrInsufficientBuffer is returned by DecodePayload when src is too short
// to hold the fixed Index/Asqn prefix.
var ErrInsufficientBuffer = errors.New("record: buffer too small")

// Record is an immutable value appended to, or read back from, the journal.
type Record struct {
	Index    uint64
	Asqn     int64
	Data     []byte
	Checksum uint32
}

// payloadHeaderSize is the width of the Index/Asqn prefix every payload
// carries ahead of the caller's opaque bytes.
const payloadHeaderSize = 8 + 8

// PayloadSize returns the number of payload bytes Record would encode to.
func (r Record) PayloadSize() int {
	return payloadHeaderSize + len(r.Data)
}

// Equal reports whether two records carry the same index, asqn, data and
// checksum — used by tests and by the replication-append duplicate check.
func (r Record) Equal(other Record) bool {
	if r.Index != other.Index || r.Asqn != other.Asqn || r.Checksum != other.Checksum {
		return false
	}
	if len(r.Data) != len(other.Data) {
		return false
	}
	for i := range r.Data {
		if r.Data[i] != other.Data[i] {
			return false
		}
	}
	return true
}
