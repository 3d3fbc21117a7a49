package gateway

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte(`{"op":"get_config"}`)
	require.NoError(t, WriteFrame(&buf, payload))

	// 8-byte header, then the payload verbatim.
	require.Equal(t, headerSize+len(payload), buf.Len())
	require.Equal(t, byte(ProtocolVersion), buf.Bytes()[0])
	require.Equal(t, uint32(len(payload)), binary.BigEndian.Uint32(buf.Bytes()[4:8]))

	got, err := ReadFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestFrameEmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, nil))
	got, err := ReadFrame(&buf)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestReadFrameRejectsVersion(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte("x")))
	b := buf.Bytes()
	b[0] = 9

	_, err := ReadFrame(bytes.NewReader(b))
	var fe *FramingError
	require.ErrorAs(t, err, &fe)
}

func TestReadFrameRejectsOversize(t *testing.T) {
	var hdr [headerSize]byte
	hdr[0] = ProtocolVersion
	binary.BigEndian.PutUint32(hdr[4:], maxPayload+1)

	_, err := ReadFrame(bytes.NewReader(hdr[:]))
	var fe *FramingError
	require.ErrorAs(t, err, &fe)
}

func TestReadFrameShortPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte("abcdef")))
	truncated := buf.Bytes()[:buf.Len()-2]

	_, err := ReadFrame(bytes.NewReader(truncated))
	var fe *FramingError
	require.ErrorAs(t, err, &fe)
}
