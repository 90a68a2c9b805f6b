package wire

import (
	"testing"

	"github.com/badu/bayou/hdr"
	"github.com/stretchr/testify/assert"
)

func TestChunkedEncoderFlushUnderBufSize(t *testing.T) {
	enc := NewChunkedEncoder(1024)
	out := enc.Write([]byte("hi"))
	assert.Nil(t, out) // below bufSize, nothing framed yet

	framed := enc.Flush()
	assert.Equal(t, "2\r\nhi\r\n", string(framed))
}

func TestChunkedEncoderAutoFlushAtBufSize(t *testing.T) {
	enc := NewChunkedEncoder(4)
	framed := enc.Write([]byte("data"))
	assert.Equal(t, "4\r\ndata\r\n", string(framed))
}

func TestChunkedEncoderCloseWithTrailers(t *testing.T) {
	enc := NewChunkedEncoder(1024)
	enc.Write([]byte("x"))
	trailers := hdr.NewOrdered()
	trailers.Set("X-Done", "1")
	out := enc.Close(trailers)
	assert.Equal(t, "1\r\nx\r\n0\r\nX-Done: 1\r\n\r\n", string(out))
}
