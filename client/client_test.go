package client

import (
	"testing"

	"github.com/badu/bayou"
	"github.com/badu/bayou/hdr"
	"github.com/badu/bayou/url"
	"github.com/stretchr/testify/require"
)

func TestTargetForUsesAbsoluteFormThroughPlainProxy(t *testing.T) {
	c := &Client{cfg: Config{ProxyURL: "proxy:3128"}}
	req := bayou.NewRequest(bayou.GET, "/a", url.OriginForm, 1, "example.com", "http", "", nil, hdr.NewOrdered(), nil)
	got := c.targetFor(req, destinationOf(req.Scheme, req.Host))
	require.Equal(t, "http://example.com/a", got)
}

func TestTargetForUsesOriginFormWhenTunnelled(t *testing.T) {
	c := &Client{cfg: Config{ProxyURL: "proxy:3128"}}
	req := bayou.NewRequest(bayou.GET, "/a", url.OriginForm, 1, "example.com", "https", "", nil, hdr.NewOrdered(), nil)
	got := c.targetFor(req, destinationOf(req.Scheme, req.Host))
	require.Equal(t, "/a", got)
}

func TestTargetForUsesOriginFormWithNoProxy(t *testing.T) {
	c := &Client{cfg: Config{}}
	req := bayou.NewRequest(bayou.GET, "/a", url.OriginForm, 1, "example.com", "http", "", nil, hdr.NewOrdered(), nil)
	got := c.targetFor(req, destinationOf(req.Scheme, req.Host))
	require.Equal(t, "/a", got)
}

func TestUsesTunnelIsCaseInsensitive(t *testing.T) {
	c := &Client{cfg: Config{Tunnels: []string{"Internal.Example.com"}}}
	require.True(t, c.usesTunnel("internal.example.com"))
	require.False(t, c.usesTunnel("other.example.com"))
}
