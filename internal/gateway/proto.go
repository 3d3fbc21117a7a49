// Package gateway exposes a permission-gated subset of the catalog
// engine's operations over a length-prefixed framed protocol: an 8-byte
// big-endian header (protocol version, reserved bytes, payload length)
// followed by a JSON payload. The server runs one goroutine per accepted
// connection; application-level failures travel in-band as error
// responses and never tear the connection down. Only framing-level I/O
// failures close it.
package gateway

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// ProtocolVersion is carried in the first header byte. A peer speaking a
// different version is rejected at the framing layer.
const ProtocolVersion = 1

// headerSize is the fixed frame header length:
// version u8, reserved u8, reserved u16, payload length u32, big-endian.
const headerSize = 8

// maxPayload bounds a frame's payload so a broken or hostile peer cannot
// make the server allocate arbitrarily.
const maxPayload = 64 << 20

// FramingError is a protocol-level failure: bad version, oversized
// payload, or a short read. The connection is unusable afterwards.
type FramingError struct {
	Message string
	Err     error
}

func (e *FramingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway framing: %s: %v", e.Message, e.Err)
	}
	return "gateway framing: " + e.Message
}

func (e *FramingError) Unwrap() error { return e.Err }

// WriteFrame writes one framed payload.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > maxPayload {
		return &FramingError{Message: fmt.Sprintf("payload of %d bytes exceeds limit", len(payload))}
	}
	var hdr [headerSize]byte
	hdr[0] = ProtocolVersion
	binary.BigEndian.PutUint32(hdr[4:], uint32(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return &FramingError{Message: "write header", Err: err}
	}
	if _, err := w.Write(payload); err != nil {
		return &FramingError{Message: "write payload", Err: err}
	}
	return nil
}

// ReadFrame reads one framed payload.
func ReadFrame(r io.Reader) ([]byte, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, &FramingError{Message: "read header", Err: err}
	}
	if hdr[0] != ProtocolVersion {
		return nil, &FramingError{Message: fmt.Sprintf("unsupported protocol version %d", hdr[0])}
	}
	n := binary.BigEndian.Uint32(hdr[4:])
	if n > maxPayload {
		return nil, &FramingError{Message: fmt.Sprintf("payload of %d bytes exceeds limit", n)}
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, &FramingError{Message: "read payload", Err: err}
	}
	return payload, nil
}

// Request is one operation call: the operation name and its named
// arguments.
type Request struct {
	Op   string          `json:"op"`
	Args json.RawMessage `json:"args,omitempty"`
}

// Response pairs a result with an optional in-band error; exactly one of
// the two is meaningful.
type Response struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  *WireError      `json:"error,omitempty"`
}

// WireError is an application-level failure serialized back to the
// caller. Code preserves the engine's typed error codes so remote callers
// can branch the way local ones do.
type WireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *WireError) Error() string { return e.Code + ": " + e.Message }

// Permission error codes, reported in-band.
const (
	codeNotAuthenticated = "NOT_AUTHENTICATED"
	codeReadOnly         = "READ_ONLY"
	codeUnknownOperation = "UNKNOWN_OPERATION"
	codeBadCredentials   = "BAD_CREDENTIALS"
	codeBadRequest       = "BAD_REQUEST"
	codeInternal         = "INTERNAL"
)

// IsPermissionDenied reports whether err is one of the gateway's
// permission rejections (as opposed to an engine error passed through).
func IsPermissionDenied(err error) bool {
	we, ok := err.(*WireError)
	if !ok {
		return false
	}
	switch we.Code {
	case codeNotAuthenticated, codeReadOnly, codeUnknownOperation, codeBadCredentials:
		return true
	}
	return false
}
