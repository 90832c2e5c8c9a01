package boltengine

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/kakkerlakgly/adapterkit/internal/x/bboltx"
	"github.com/kakkerlakgly/adapterkit/message"
)

// record is the stored representation of a message.
type record struct {
	ID                string         `cbor:"1,keyasint"`
	Properties        map[string]any `cbor:"2,keyasint,omitempty"`
	Body              []byte         `cbor:"3,keyasint,omitempty"`
	Due               int64          `cbor:"4,keyasint,omitempty"`
	Token             string         `cbor:"5,keyasint,omitempty"`
	RequestID         string         `cbor:"6,keyasint,omitempty"`
	FirstResponseOnly bool           `cbor:"7,keyasint,omitempty"`
	Expiry            int64          `cbor:"8,keyasint,omitempty"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}

	decMode, err = cbor.DecOptions{
		IntDec: cbor.IntDecConvertSigned,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// newRecord returns the record for m.
//
// The body is omitted if it can not be re-read.
func newRecord(m *message.Message) (record, error) {
	r := record{
		ID:         m.ID,
		Properties: m.Properties.Map(),
	}

	if m.CheckSeekable() == nil {
		body, err := m.ReadAll()
		if err != nil {
			return record{}, err
		}
		r.Body = body
	}

	return r, nil
}

// Message returns the message represented by r.
func (r record) Message() *message.Message {
	m := message.NewBytes(r.Body)
	m.ID = r.ID
	m.Properties.Load(r.Properties)
	return m
}

// marshalRecord marshals r to its binary representation.
func marshalRecord(r record) ([]byte, error) {
	return encMode.Marshal(r)
}

// unmarshalRecord unmarshals a record from its binary representation.
func unmarshalRecord(data []byte) record {
	var r record
	if err := decMode.Unmarshal(data, &r); err != nil {
		panic(bboltx.PanicSentinel{
			Cause: fmt.Errorf("record is corrupt: %w", err),
		})
	}
	return r
}

// dueKey returns the key of a resubmitted message. Keys sort by due time.
func dueKey(due time.Time, id string) []byte {
	data := make([]byte, 8, 8+len(id))
	binary.BigEndian.PutUint64(data, uint64(due.UnixNano()))
	return append(data, id...)
}

// unmarshalDue returns the due time encoded in a key produced by dueKey().
func unmarshalDue(k []byte) time.Time {
	if len(k) < 8 {
		panic(bboltx.PanicSentinel{
			Cause: fmt.Errorf("key is corrupt, expected at least 8 bytes, got %d", len(k)),
		})
	}

	return time.Unix(0, int64(binary.BigEndian.Uint64(k)))
}
