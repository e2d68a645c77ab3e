package icp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// conformance pairs messages with their exact wire bytes.
var conformance = []struct {
	name    string
	message *EagerMessage
	wire    []byte
}{
	{
		name:    "query",
		message: testQuery(0),
		wire: cat(
			[]byte{0x01, 0x02, 0x00, 0x22},
			[]byte{0x01, 0x02, 0x03, 0x04},
			[]byte{0x00, 0x00, 0x00, 0x00},
			[]byte{0x00, 0x00, 0x00, 0x00},
			[]byte{10, 1, 2, 3},
			[]byte{10, 4, 5, 6},
			urlBytes,
		),
	},
	{
		name:    "query requesting src rtt and hit obj",
		message: testQuery(FlagSrcRtt | FlagHitObj),
		wire: cat(
			[]byte{0x01, 0x02, 0x00, 0x22},
			[]byte{0x01, 0x02, 0x03, 0x04},
			[]byte{0xc0, 0x00, 0x00, 0x00},
			[]byte{0x00, 0x00, 0x00, 0x00},
			[]byte{10, 1, 2, 3},
			[]byte{10, 4, 5, 6},
			urlBytes,
		),
	},
	{
		name:    "hit",
		message: response(OpHit, 0, 0, nil),
		wire:    responseWire(0x02, []byte{0, 0, 0, 0}, []byte{0, 0, 0, 0}),
	},
	{
		name:    "hit with src rtt",
		message: response(OpHit, FlagSrcRtt, 0x1234, nil),
		wire:    responseWire(0x02, []byte{0x40, 0, 0, 0}, []byte{0, 0, 0x12, 0x34}),
	},
	{
		name:    "miss",
		message: response(OpMiss, 0, 0, nil),
		wire:    responseWire(0x03, []byte{0, 0, 0, 0}, []byte{0, 0, 0, 0}),
	},
	{
		name:    "miss with src rtt",
		message: response(OpMiss, FlagSrcRtt, 0xffff, nil),
		wire:    responseWire(0x03, []byte{0x40, 0, 0, 0}, []byte{0, 0, 0xff, 0xff}),
	},
	{
		name:    "err",
		message: response(OpErr, 0, 0, nil),
		wire:    responseWire(0x04, []byte{0, 0, 0, 0}, []byte{0, 0, 0, 0}),
	},
	{
		name:    "secho",
		message: response(OpSecho, 0, 0, nil),
		wire:    responseWire(0x0a, []byte{0, 0, 0, 0}, []byte{0, 0, 0, 0}),
	},
	{
		name:    "decho",
		message: response(OpDecho, 0, 0, nil),
		wire:    responseWire(0x0b, []byte{0, 0, 0, 0}, []byte{0, 0, 0, 0}),
	},
	{
		name:    "miss nofetch",
		message: response(OpMissNoFetch, 0, 0, nil),
		wire:    responseWire(0x15, []byte{0, 0, 0, 0}, []byte{0, 0, 0, 0}),
	},
	{
		name:    "miss nofetch with src rtt",
		message: response(OpMissNoFetch, FlagSrcRtt, 7, nil),
		wire:    responseWire(0x15, []byte{0x40, 0, 0, 0}, []byte{0, 0, 0, 7}),
	},
	{
		name:    "denied",
		message: response(OpDenied, 0, 0, nil),
		wire:    responseWire(0x16, []byte{0, 0, 0, 0}, []byte{0, 0, 0, 0}),
	},
	{
		name:    "hit obj",
		message: response(OpHitObj, 0, 0, []byte("abc")),
		wire: cat(
			[]byte{0x17, 0x02, 0x00, 0x23},
			[]byte{0x01, 0x02, 0x03, 0x04},
			[]byte{0, 0, 0, 0},
			[]byte{0, 0, 0, 0},
			[]byte{10, 1, 2, 3},
			urlBytes,
			[]byte{0x00, 0x03, 0x61, 0x62, 0x63},
		),
	},
	{
		name:    "hit obj with src rtt and empty object",
		message: response(OpHitObj, FlagSrcRtt, 0x0102, []byte{}),
		wire: cat(
			[]byte{0x17, 0x02, 0x00, 0x20},
			[]byte{0x01, 0x02, 0x03, 0x04},
			[]byte{0x40, 0, 0, 0},
			[]byte{0, 0, 0x01, 0x02},
			[]byte{10, 1, 2, 3},
			urlBytes,
			[]byte{0x00, 0x00},
		),
	},
}

func response(op Opcode, options, optionData uint32, payload []byte) *EagerMessage {
	return NewMessage(Fields{
		Opcode:        op,
		Version:       Version,
		RequestNumber: testRequestNumber,
		Options:       options,
		OptionData:    optionData,
		Sender:        testSender,
		URL:           testURL,
		Payload:       payload,
	})
}

// responseWire lays out a 30 byte non-query, non-HIT_OBJ message.
func responseWire(op byte, options, optionData []byte) []byte {
	return cat(
		[]byte{op, 0x02, 0x00, 0x1e},
		[]byte{0x01, 0x02, 0x03, 0x04},
		options,
		optionData,
		[]byte{10, 1, 2, 3},
		urlBytes,
	)
}

func TestMarshalConformance(t *testing.T) {
	for _, tt := range conformance {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Marshal(tt.message)
			require.NoError(t, err)
			assert.Equal(t, tt.wire, got)
			assert.Equal(t, len(tt.wire), tt.message.Length())
		})
	}
}

func TestDecodeConformance(t *testing.T) {
	for _, tt := range conformance {
		t.Run(tt.name, func(t *testing.T) {
			eager, err := DecodeEager(tt.wire)
			require.NoError(t, err)
			assert.True(t, Equal(tt.message, eager), "eager decode differs")

			lazy, err := NewLazyMessage(tt.wire)
			require.NoError(t, err)
			assert.True(t, Equal(tt.message, lazy), "lazy decode differs")
		})
	}
}

func TestRoundTrip(t *testing.T) {
	enc := Encoder{}
	for _, tt := range conformance {
		t.Run(tt.name, func(t *testing.T) {
			d, err := enc.Encode(tt.message, testPeer, testPeerPort)
			require.NoError(t, err)
			assert.True(t, testPeer.Equal(d.Addr.IP))
			assert.Equal(t, testPeerPort, d.Addr.Port)

			for _, dec := range []Decoder{EagerDecoder{}, LazyDecoder{}} {
				decoded, err := dec.Decode(d)
				require.NoError(t, err)
				assert.True(t, Equal(tt.message, decoded), "%T", dec)
				assert.True(t, testPeer.Equal(decoded.UDPAddress()))
				assert.Equal(t, testPeerPort, decoded.UDPPort())

				again, err := enc.Encode(decoded, testPeer, testPeerPort)
				require.NoError(t, err)
				assert.Equal(t, tt.wire, again.Data, "%T", dec)
			}
		})
	}
}

func TestMarshalLazyCopiesBuffer(t *testing.T) {
	wire := conformance[0].wire
	lazy, err := NewLazyMessage(append([]byte{}, wire...))
	require.NoError(t, err)

	out, err := Marshal(lazy)
	require.NoError(t, err)
	out[0] = 0xff
	assert.Equal(t, OpQuery, lazy.Opcode())
}

func TestMarshalRejectsUnencodable(t *testing.T) {
	tests := []struct {
		name    string
		message Message
	}{
		{"invalid opcode", NewMessage(Fields{Opcode: 5, Version: Version, URL: testURL})},
		{"wrong version", NewMessage(Fields{Opcode: OpHit, Version: 3, URL: testURL})},
		{"ipv6 sender", NewMessage(Fields{Opcode: OpHit, Version: Version, Sender: []byte{0x20, 0x01, 0x0d, 0xb8, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1}, URL: testURL})},
		{"nul in url", NewMessage(Fields{Opcode: OpHit, Version: Version, URL: "http://a/\x00b"})},
		{"too long", NewMessage(Fields{Opcode: OpHit, Version: Version, URL: strings.Repeat("a", MaxLength)})},
		{"object too long", NewMessage(Fields{Opcode: OpHitObj, Version: Version, URL: testURL, Payload: make([]byte, MaxLength)})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Marshal(tt.message)
			require.Error(t, err)
			assert.True(t, IsProtocolError(err))
		})
	}
}

func TestMarshalNil(t *testing.T) {
	_, err := Marshal(nil)
	assert.ErrorIs(t, err, ErrNilMessage)

	var m *EagerMessage
	_, err = Marshal(m)
	assert.ErrorIs(t, err, ErrNilMessage)
}
