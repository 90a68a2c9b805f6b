package wire

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/badu/bayou/entity"
	"github.com/badu/bayou/hdr"
	"github.com/stretchr/testify/assert"
)

func TestEncodeRequestHeadFixedLength(t *testing.T) {
	var buf bytes.Buffer
	headers := hdr.NewOrdered()
	n := int64(11)
	e := &entity.Entity{ContentLength: &n, ContentType: "text/plain"}
	framing := EncodeRequestHead(&buf, "POST", "/x", 1, headers, e)
	assert.Equal(t, FramingFixed, framing)
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "POST /x HTTP/1.1\r\n"))
	assert.Contains(t, out, "Content-Length: 11\r\n")
	assert.Contains(t, out, "Content-Type: text/plain\r\n")
	assert.True(t, strings.HasSuffix(out, "\r\n\r\n"))
}

func TestEncodeRequestHeadChunked(t *testing.T) {
	var buf bytes.Buffer
	headers := hdr.NewOrdered()
	e := entity.New(func() (entity.Body, error) { return entity.NopBody, nil }, true)
	framing := EncodeRequestHead(&buf, "POST", "/x", 1, headers, e)
	assert.Equal(t, FramingChunked, framing)
	assert.Contains(t, buf.String(), "Transfer-Encoding: chunked\r\n")
}

func TestEncodeResponseHeadInjectsDateAndServer(t *testing.T) {
	var buf bytes.Buffer
	headers := hdr.NewOrdered()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	framing := EncodeResponseHead(&buf, 200, "OK", 1, headers, nil, now)
	assert.Equal(t, FramingNone, framing)
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n"))
	assert.Contains(t, out, "Date: Sat, 01 Aug 2026 12:00:00 GMT\r\n")
	assert.Contains(t, out, "Server: Bayou\r\n")
}

func TestEncodeResponseHeadDropsHandlerSetHeaderWithCRLFInjection(t *testing.T) {
	var buf bytes.Buffer
	headers := hdr.NewOrdered()
	headers.Set("X-Evil", "value\r\nX-Injected: true")
	framing := EncodeResponseHead(&buf, 200, "OK", 1, headers, nil, time.Now())
	assert.Equal(t, FramingNone, framing)
	out := buf.String()
	assert.NotContains(t, out, "X-Evil")
	assert.NotContains(t, out, "X-Injected")
}

func TestEncodeResponseHeadUnknownLengthOnHTTP10OmitsChunkedHeader(t *testing.T) {
	var buf bytes.Buffer
	headers := hdr.NewOrdered()
	e := entity.New(func() (entity.Body, error) { return entity.NopBody, nil }, true)
	framing := EncodeResponseHead(&buf, 200, "OK", 0, headers, e, time.Now())
	assert.NotEqual(t, FramingChunked, framing)
	assert.NotContains(t, buf.String(), "Transfer-Encoding")
}
