package ackbus

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maxpert/marmot-pdm/vbucket"
)

func TestAckPayload_RoundTrip(t *testing.T) {
	t.Parallel()

	payload := encodeAckPayload(12, 9001)
	vbid, seqno, err := DecodeAckPayload(payload)
	require.NoError(t, err)
	require.Equal(t, vbucket.ID(12), vbid)
	require.Equal(t, int64(9001), seqno)
}

func TestAckPayload_RejectsMalformedLength(t *testing.T) {
	t.Parallel()

	_, _, err := DecodeAckPayload([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestAckPayload_ZeroValues(t *testing.T) {
	t.Parallel()

	payload := encodeAckPayload(0, 0)
	vbid, seqno, err := DecodeAckPayload(payload)
	require.NoError(t, err)
	require.Equal(t, vbucket.ID(0), vbid)
	require.Equal(t, int64(0), seqno)
}
