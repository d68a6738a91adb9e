package events

import (
	"encoding/hex"
	"strconv"

	"paylock/core/types"
	"paylock/crypto"
)

// Payload is implemented by events that can render themselves as a raw
// types.Event.
type Payload interface {
	Event
	Event() *types.Event
}

// TxEvent binds an event to the transaction that produced it. It is what the
// node forwards to downstream sinks once the transaction is committed.
type TxEvent struct {
	Sequence uint64
	Index    int
	TxHash   [32]byte
	Sender   [20]byte
	Inner    *types.Event
}

// EventType returns the type of the wrapped event.
func (e TxEvent) EventType() string {
	if e.Inner == nil {
		return ""
	}
	return e.Inner.Type
}

// Event returns a copy of the wrapped event with the transaction context
// added to its attributes.
func (e TxEvent) Event() *types.Event {
	attrs := make(map[string]string, 4)
	if e.Inner != nil {
		for k, v := range e.Inner.Attributes {
			attrs[k] = v
		}
	}
	attrs["txHash"] = "0x" + hex.EncodeToString(e.TxHash[:])
	attrs["sender"] = crypto.FormatAddress(e.Sender)
	attrs["sequence"] = strconv.FormatUint(e.Sequence, 10)
	return &types.Event{Type: e.EventType(), Attributes: attrs}
}
