package wire

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRequest(&buf, 7, []string{"a.o", "b.o"}))

	r := bufio.NewReader(&buf)
	id, err := ReadJobID(r)
	require.NoError(t, err)
	assert.Equal(t, int32(7), id)

	targets, err := ReadTargets(r)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.o", "b.o"}, targets)
}

func TestRequestWithNoTargets(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRequest(&buf, -1, nil))

	r := bufio.NewReader(&buf)
	id, err := ReadJobID(r)
	require.NoError(t, err)
	assert.Equal(t, int32(-1), id)

	targets, err := ReadTargets(r)
	require.NoError(t, err)
	assert.Empty(t, targets)
}

func TestReadJobIDShortReadIsMalformed(t *testing.T) {
	r := bytes.NewReader([]byte{1, 2})
	_, err := ReadJobID(r)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestReadTargetsMissingTerminatorIsMalformed(t *testing.T) {
	r := bufio.NewReader(bytes.NewReader([]byte("a.o\x00b.o\x00")))
	_, err := ReadTargets(r)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestReplyRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReply(&buf, true))
	ok, err := ReadReply(&buf)
	require.NoError(t, err)
	assert.True(t, ok)

	buf.Reset()
	require.NoError(t, WriteReply(&buf, false))
	ok, err = ReadReply(&buf)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReadReplyShortReadIsError(t *testing.T) {
	_, err := ReadReply(bytes.NewReader(nil))
	assert.Error(t, err)
}
