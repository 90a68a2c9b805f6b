package wire

import (
	"testing"

	"github.com/badu/bayou/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestParserWholeHeadInOneFeed(t *testing.T) {
	p := NewRequestParser(DefaultLimits)
	raw := "GET /a/b?x=1 HTTP/1.1\r\nHost: example.com\r\nAccept: */*\r\n\r\n"
	status, head, rest, err := p.Feed([]byte(raw))
	require.NoError(t, err)
	require.Equal(t, Done, status)
	assert.Equal(t, "GET", head.Method)
	assert.Equal(t, "/a/b?x=1", head.Target)
	assert.Equal(t, 1, head.Minor)
	host, ok := head.Headers.Get("Host")
	require.True(t, ok)
	assert.Equal(t, "example.com", host)
	assert.Empty(t, rest)
}

func TestRequestParserFragmentedAcrossFeeds(t *testing.T) {
	p := NewRequestParser(DefaultLimits)
	status, _, _, err := p.Feed([]byte("GET / HTTP/1.1\r\nHo"))
	require.NoError(t, err)
	assert.Equal(t, NeedMore, status)

	status, head, rest, err := p.Feed([]byte("st: x\r\n\r\nbodybytes"))
	require.NoError(t, err)
	require.Equal(t, Done, status)
	host, _ := head.Headers.Get("Host")
	assert.Equal(t, "x", host)
	assert.Equal(t, "bodybytes", string(rest))
}

func TestRequestParserRejectsBadMethod(t *testing.T) {
	p := NewRequestParser(DefaultLimits)
	status, _, _, err := p.Feed([]byte("BAD METHOD / HTTP/1.1\r\n\r\n"))
	assert.Equal(t, Failed, status)
	assert.Error(t, err)
}

func TestRequestParserRejectsUnsupportedVersion(t *testing.T) {
	p := NewRequestParser(DefaultLimits)
	status, _, _, err := p.Feed([]byte("GET / HTTP/2.0\r\n\r\n"))
	assert.Equal(t, Failed, status)
	require.Error(t, err)
	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, 505, e.Status)
}

func TestRequestParserRejectsMalformedVersionAs400(t *testing.T) {
	p := NewRequestParser(DefaultLimits)
	status, _, _, err := p.Feed([]byte("GET / FOO\r\n\r\n"))
	assert.Equal(t, Failed, status)
	require.Error(t, err)
	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, 400, e.Status)
}

func TestRequestParserFoldsObsoleteLineContinuation(t *testing.T) {
	p := NewRequestParser(DefaultLimits)
	raw := "GET / HTTP/1.1\r\nX-Long: first\r\n second\r\n\r\n"
	_, head, _, err := p.Feed([]byte(raw))
	require.NoError(t, err)
	v, ok := head.Headers.Get("X-Long")
	require.True(t, ok)
	assert.Equal(t, "first second", v)
}

func TestRequestParserRejectsLeadingContinuationWithNoPriorHeader(t *testing.T) {
	p := NewRequestParser(DefaultLimits)
	status, _, _, err := p.Feed([]byte("GET / HTTP/1.1\r\n stray\r\n\r\n"))
	assert.Equal(t, Failed, status)
	assert.Error(t, err)
}

func TestRequestParserDuplicateHeadersJoined(t *testing.T) {
	p := NewRequestParser(DefaultLimits)
	raw := "GET / HTTP/1.1\r\nX-A: one\r\nX-A: two\r\n\r\n"
	_, head, _, err := p.Feed([]byte(raw))
	require.NoError(t, err)
	v, _ := head.Headers.Get("X-A")
	assert.Equal(t, "one, two", v)
}
