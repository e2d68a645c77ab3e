package icp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lazyQuery(t *testing.T, options uint32) *LazyMessage {
	t.Helper()
	wire, err := Marshal(testQuery(options))
	require.NoError(t, err)
	m, err := NewLazyMessage(wire)
	require.NoError(t, err)
	return m
}

func TestLazyMessageIsNotDeriver(t *testing.T) {
	var m Message = lazyQuery(t, 0)
	_, ok := m.(Deriver)
	assert.False(t, ok)

	m = testQuery(0)
	_, ok = m.(Deriver)
	assert.True(t, ok)
}

// The lazy representation supports DENIED, ERR, bare HIT and bare
// MISS_NOFETCH; bare MISS is unsupported along with every RTT-carrying and
// HIT_OBJ response.
func TestLazyCapabilitySet(t *testing.T) {
	supported := map[string]bool{
		"denied":       true,
		"error":        true,
		"hit":          true,
		"miss nofetch": true,
	}
	b := NewBuilder(responderAddress)
	q := lazyQuery(t, FlagSrcRtt|FlagHitObj)

	for _, tc := range buildCases {
		t.Run(tc.name, func(t *testing.T) {
			r, err := tc.build(b, q)
			if !supported[tc.name] {
				require.Error(t, err)
				assert.True(t, IsUnsupported(err))
				assert.False(t, IsProtocolError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.op, r.Opcode())
			assert.Equal(t, q.RequestNumber(), r.RequestNumber())
			assert.Equal(t, q.PayloadURL(), r.PayloadURL())
			assert.False(t, r.ContainsSrcRttResponse())
		})
	}
}

func TestLazyMessageMaterialized(t *testing.T) {
	q := lazyQuery(t, FlagSrcRtt)
	eager := Materialize(q)
	require.NotNil(t, eager)
	assert.True(t, Equal(q, eager))

	r, err := NewBuilder(responderAddress).MakeMissSrcRtt(eager, 12)
	require.NoError(t, err)
	assert.Equal(t, uint16(12), r.SrcRttResponse())
}

func TestLazyMessageAccessors(t *testing.T) {
	wire := conformance[12].wire
	m, err := NewLazyMessage(wire)
	require.NoError(t, err)

	assert.Equal(t, OpHitObj, m.Opcode())
	assert.Equal(t, Version, m.Version())
	assert.Equal(t, len(wire), m.Length())
	assert.Equal(t, uint32(testRequestNumber), m.RequestNumber())
	assert.True(t, testSender.Equal(m.SenderAddress()))
	assert.Nil(t, m.RequesterAddress())
	assert.Equal(t, testURL, m.PayloadURL())
	assert.Equal(t, 3, m.PayloadObjectLength())
	assert.Equal(t, []byte("abc"), m.PayloadObject())
	assert.Equal(t, wire, m.Bytes())
}
