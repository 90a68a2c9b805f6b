package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseParserBasic(t *testing.T) {
	p := NewResponseParser(DefaultLimits)
	raw := "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello"
	status, head, rest, err := p.Feed([]byte(raw))
	require.NoError(t, err)
	require.Equal(t, Done, status)
	assert.Equal(t, 200, head.Status)
	assert.Equal(t, "OK", head.Reason)
	cl, ok := head.Headers.Get("Content-Length")
	require.True(t, ok)
	assert.Equal(t, "5", cl)
	assert.Equal(t, "hello", string(rest))
}

func TestResponseParserRejectsBadStatus(t *testing.T) {
	p := NewResponseParser(DefaultLimits)
	status, _, _, err := p.Feed([]byte("HTTP/1.1 abc OK\r\n\r\n"))
	assert.Equal(t, Failed, status)
	assert.Error(t, err)
}

func TestResponseParserNoReasonPhrase(t *testing.T) {
	p := NewResponseParser(DefaultLimits)
	status, head, _, err := p.Feed([]byte("HTTP/1.0 204\r\n\r\n"))
	require.NoError(t, err)
	require.Equal(t, Done, status)
	assert.Equal(t, 204, head.Status)
	assert.Equal(t, "", head.Reason)
	assert.Equal(t, 0, head.Minor)
}
