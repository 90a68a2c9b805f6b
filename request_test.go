package bayou

import (
	"testing"

	"github.com/badu/bayou/hdr"
	"github.com/badu/bayou/url"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequestDerivesCookiesFromHeader(t *testing.T) {
	h := hdr.NewOrdered()
	h.Set(hdr.CookieHeader, "sid=abc; theme=dark")
	r := NewRequest(GET, "/x", url.OriginForm, 1, "example.com", "http", "127.0.0.1", nil, h, nil)
	v, ok := r.Cookie("theme")
	require.True(t, ok)
	assert.Equal(t, "dark", v)
}

func TestResponseForceCloseSetsConnectionClose(t *testing.T) {
	h := hdr.NewOrdered()
	resp := NewResponse(StatusBadRequest, "", h, nil)
	resp.ForceClose()
	assert.True(t, resp.Last)
	v, _ := h.Get(hdr.Connection)
	assert.Equal(t, "close", v)
	assert.Equal(t, "Bad Request", resp.Reason)
}
