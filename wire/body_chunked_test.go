package wire

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkedBodyBasic(t *testing.T) {
	raw := "5\r\nhello\r\n6\r\n world\r\n0\r\n\r\n"
	b := NewChunkedBody(&fakeSource{}, []byte(raw))

	chunk1, err := b.Next(context.Background()).Await()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(chunk1))

	chunk2, err := b.Next(context.Background()).Await()
	require.NoError(t, err)
	assert.Equal(t, " world", string(chunk2))

	_, err = b.Next(context.Background()).Await()
	assert.ErrorIs(t, err, io.EOF)
}

func TestChunkedBodyWithTrailer(t *testing.T) {
	raw := "3\r\nabc\r\n0\r\nX-Trailer: done\r\n\r\n"
	b := NewChunkedBody(&fakeSource{}, []byte(raw))
	chunk, err := b.Next(context.Background()).Await()
	require.NoError(t, err)
	assert.Equal(t, "abc", string(chunk))

	_, err = b.Next(context.Background()).Await()
	assert.ErrorIs(t, err, io.EOF)
	require.NotNil(t, b.Trailers)
	v, ok := b.Trailers.Get("X-Trailer")
	require.True(t, ok)
	assert.Equal(t, "done", v)
}

func TestChunkedBodySplitAcrossSourceReads(t *testing.T) {
	src := &fakeSource{chunks: [][]byte{
		[]byte("4\r\nwo"),
		[]byte("ot\r\n0\r\n\r\n"),
	}}
	b := NewChunkedBody(src, nil)
	chunk, err := b.Next(context.Background()).Await()
	require.NoError(t, err)
	assert.Equal(t, "woot", string(chunk))
	_, err = b.Next(context.Background()).Await()
	assert.ErrorIs(t, err, io.EOF)
}

func TestChunkedBodyStripsExtension(t *testing.T) {
	raw := "5;ignored=ext\r\nhello\r\n0\r\n\r\n"
	b := NewChunkedBody(&fakeSource{}, []byte(raw))
	chunk, err := b.Next(context.Background()).Await()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(chunk))
}
