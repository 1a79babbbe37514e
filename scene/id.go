package scene

import (
	"fmt"
	"strconv"
	"strings"
)

// ObjectID encodes the scene epoch (upper 32 bits) and a sequence number (lower 32 bits).
// The epoch advances every time the scene is cleared, so an id is never issued twice.
type ObjectID uint64

// NewObjectID creates an ObjectID from an epoch and sequence number
func NewObjectID(epoch uint32, seq uint32) ObjectID {
	return ObjectID(uint64(epoch)<<32 | uint64(seq))
}

// Epoch extracts the scene epoch from the id
func (id ObjectID) Epoch() uint32 {
	return uint32(id >> 32)
}

// Seq extracts the sequence number from the id
func (id ObjectID) Seq() uint32 {
	return uint32(id & 0xFFFFFFFF)
}

func (id ObjectID) String() string {
	return fmt.Sprintf("%d:%d", id.Epoch(), id.Seq())
}

func (id ObjectID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ObjectID) UnmarshalText(text []byte) error {
	parsed, err := ParseObjectID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseObjectID parses the "epoch:seq" form produced by String.
func ParseObjectID(s string) (ObjectID, error) {
	epochStr, seqStr, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("object id %q: missing ':'", s)
	}
	epoch, err := strconv.ParseUint(epochStr, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("object id %q: %w", s, err)
	}
	seq, err := strconv.ParseUint(seqStr, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("object id %q: %w", s, err)
	}
	return NewObjectID(uint32(epoch), uint32(seq)), nil
}
