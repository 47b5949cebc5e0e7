// Package gossip implements the peer-to-peer wire protocol: newline-
// delimited canonical JSON message frames exchanged over raw TCP, and the
// broadcast/loop-suppression rules that keep a message from echoing back
// to the peer that sent it.
package gossip

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
)

// Type identifies the kind of message carried in a frame's payload.
type Type int

// The message type set, in the order spec.md lists them.
const (
	TypeHandshake Type = iota
	TypeNewTransaction
	TypeNewBlock
	TypeRequestChain
	TypeResponseChain
	TypeSyncRequest
	TypeSyncResponse
	TypePeerList
	TypeAck
	TypeStateSyncRequest
	TypeStateSyncResponse
)

func (t Type) String() string {
	names := [...]string{
		"HANDSHAKE", "NEW_TRANSACTION", "NEW_BLOCK", "REQUEST_CHAIN",
		"RESPONSE_CHAIN", "SYNC_REQUEST", "SYNC_RESPONSE", "PEER_LIST",
		"ACK", "STATE_SYNC_REQUEST", "STATE_SYNC_RESPONSE",
	}
	if int(t) < 0 || int(t) >= len(names) {
		return fmt.Sprintf("Type(%d)", t)
	}
	return names[t]
}

// Message is a single gossip frame: a type tag, the sending node's id
// (used for loop suppression), and an opaque, type-specific payload.
type Message struct {
	Type     Type            `json:"type"`
	SenderID string          `json:"sender_id"`
	Payload  json.RawMessage `json:"payload"`
}

// NewMessage builds a Message, marshaling payload into its Payload field.
func NewMessage(t Type, senderID string, payload any) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}

	return Message{Type: t, SenderID: senderID, Payload: data}, nil
}

// Decode unmarshals m's payload into v.
func (m Message) Decode(v any) error {
	return json.Unmarshal(m.Payload, v)
}

// =============================================================================

// Conn frames Messages as newline-delimited JSON over an underlying
// net.Conn.
type Conn struct {
	conn    net.Conn
	scanner *bufio.Scanner
}

// NewConn wraps conn for message-framed reads and writes.
func NewConn(conn net.Conn) *Conn {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	return &Conn{conn: conn, scanner: scanner}
}

// Send writes msg as a single newline-terminated JSON frame.
func (c *Conn) Send(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	_, err = c.conn.Write(append(data, '\n'))
	return err
}

// Receive blocks for the next frame and decodes it.
func (c *Conn) Receive() (Message, error) {
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return Message{}, err
		}
		return Message{}, net.ErrClosed
	}

	var msg Message
	if err := json.Unmarshal(c.scanner.Bytes(), &msg); err != nil {
		return Message{}, err
	}

	return msg, nil
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// RemoteAddr returns the underlying connection's remote address.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
