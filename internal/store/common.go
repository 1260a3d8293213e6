package store

import "encoding/binary"

// Key prefixes of the record families sharing one store.
const (
	prefixAccount byte = iota + 1
	prefixEvent
	prefixMeta
)

var keyNextEventSeq = makeKey(prefixMeta, []byte("next-event-seq"))

// makeKey creates a key from a prefix and an identifier
func makeKey(prefix byte, id []byte) []byte {
	key := make([]byte, 1+len(id))
	key[0] = prefix
	copy(key[1:], id)
	return key
}

// eventKey orders events by sequence number under a big endian suffix.
func eventKey(seq uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], seq)
	return makeKey(prefixEvent, b[:])
}
