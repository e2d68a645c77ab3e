package icp

import (
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactoryMakeQuery(t *testing.T) {
	f := NewFactory(testSender, false)

	tests := []struct {
		srcRtt, hitObj bool
		options        uint32
	}{
		{false, false, 0},
		{true, false, FlagSrcRtt},
		{false, true, FlagHitObj},
		{true, true, FlagSrcRtt | FlagHitObj},
	}
	for _, tt := range tests {
		q, err := f.MakeQuery(testRequester, testURL, tt.srcRtt, tt.hitObj)
		require.NoError(t, err)

		assert.Equal(t, OpQuery, q.Opcode())
		assert.Equal(t, Version, q.Version())
		assert.Equal(t, tt.options, q.Options())
		assert.Zero(t, q.OptionData())
		assert.Equal(t, tt.srcRtt, q.RequestsSrcRtt())
		assert.Equal(t, tt.hitObj, q.RequestsHitObj())
		assert.True(t, testSender.Equal(q.SenderAddress()))
		assert.True(t, testRequester.Equal(q.RequesterAddress()))
		assert.Equal(t, testURL, q.PayloadURL())
		assert.Equal(t, 34, q.Length())
	}
}

func TestFactoryMakeQueryWithNumber(t *testing.T) {
	q, err := NewFactory(testSender, false).MakeQueryWithNumber(42, testRequester, testURL, false, false)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), q.RequestNumber())
}

func TestFactoryMakeQueryRejectsBadInput(t *testing.T) {
	f := NewFactory(testSender, false)

	_, err := f.MakeQuery(testRequester, "http://a/\x00", false, false)
	assert.ErrorIs(t, err, ErrProtocol)

	_, err = f.MakeQuery(testRequester, strings.Repeat("x", MaxLength), false, false)
	assert.ErrorIs(t, err, ErrProtocol)

	_, err = f.MakeQuery(net.ParseIP("2001:db8::1"), testURL, false, false)
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestFactoryDecodeStrategy(t *testing.T) {
	d := &Datagram{Data: conformance[0].wire, Addr: &net.UDPAddr{IP: testPeer, Port: testPeerPort}}

	eager := NewFactory(testSender, false)
	assert.False(t, eager.Lazy())
	m, err := eager.Decode(d)
	require.NoError(t, err)
	assert.IsType(t, &EagerMessage{}, m)

	lazy := NewFactory(testSender, true)
	assert.True(t, lazy.Lazy())
	m, err = lazy.Decode(d)
	require.NoError(t, err)
	assert.IsType(t, &LazyMessage{}, m)

	assert.True(t, testSender.Equal(lazy.Builder().Sender()))
}

func TestFactoryQueryAnsweredByPeer(t *testing.T) {
	local := NewFactory(testSender, false)
	peer := NewFactory(responderAddress, true)

	q, err := local.MakeQuery(testRequester, testURL, false, false)
	require.NoError(t, err)
	d, err := Encoder{}.Encode(q, testPeer, testPeerPort)
	require.NoError(t, err)

	received, err := peer.Decode(d)
	require.NoError(t, err)
	r, err := peer.Builder().MakeHit(received)
	require.NoError(t, err)

	assert.Equal(t, q.RequestNumber(), r.RequestNumber())
	assert.True(t, responderAddress.Equal(r.SenderAddress()))
}
