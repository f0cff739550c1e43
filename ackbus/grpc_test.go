package ackbus

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maxpert/marmot-pdm/vbucket"
)

func TestAckRequest_RoundTrip(t *testing.T) {
	t.Parallel()

	req, err := encodeAckRequest(5, 123)
	require.NoError(t, err)

	vbid, seqno, err := decodeAckRequest(req)
	require.NoError(t, err)
	require.Equal(t, vbucket.ID(5), vbid)
	require.Equal(t, int64(123), seqno)
}

func TestDecodeAckRequest_MissingFields(t *testing.T) {
	t.Parallel()

	req, err := encodeAckRequest(1, 1)
	require.NoError(t, err)
	delete(req.Fields, "seqno")

	_, _, err = decodeAckRequest(req)
	require.Error(t, err)
}
