package tunnel

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/badu/bayou"
	"github.com/badu/bayou/async"
	"github.com/badu/bayou/cookie"
	"github.com/badu/bayou/hdr"
	"github.com/badu/bayou/server"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// pipeTransport adapts a net.Conn to server.Transport for tests, the
// same minimal shape server/transport_fake_test.go's fakeTransport
// gives connection.serve, here standing in for a real hijacked
// connection instead of a synthetic one.
type pipeTransport struct {
	conn net.Conn
}

func (p *pipeTransport) ReadChunk(ctx context.Context) *async.Future[[]byte] {
	buf := make([]byte, 32*1024)
	n, err := p.conn.Read(buf)
	if n > 0 {
		return async.Completed(buf[:n], nil)
	}
	if err == nil {
		err = io.EOF
	}
	return async.Completed[[]byte](nil, err)
}

func (p *pipeTransport) Write(b []byte) error {
	_, err := p.conn.Write(b)
	return err
}

func (p *pipeTransport) CloseWrite() error {
	if cw, ok := p.conn.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return p.conn.Close()
}

func (p *pipeTransport) Close() error                              { return p.conn.Close() }
func (p *pipeTransport) RemoteAddr() net.Addr                      { return p.conn.RemoteAddr() }
func (p *pipeTransport) TLSState() (*tls.ConnectionState, bool)    { return nil, false }
func (p *pipeTransport) SetReadTimeout(d time.Duration)            {}
func (p *pipeTransport) SetWriteTimeout(d time.Duration)           {}

type fakeHijacker struct {
	transport server.Transport
	err       error
}

func (h *fakeHijacker) Hijack() (server.Transport, error) { return h.transport, h.err }

func newContext(target string) *bayou.Context {
	req := bayou.NewRequest(bayou.CONNECT, target, 0, 1, target, "", "", nil, hdr.NewOrdered(), nil)
	return bayou.NewContext(context.Background(), req, cookie.NewJar("", "", ""), zap.NewNop())
}

func TestTunnelDialFailureWritesBadGateway(t *testing.T) {
	tu := &Tunneler{
		Dial: func(network, addr string, timeout time.Duration) (net.Conn, error) {
			return nil, errors.New("connection refused")
		},
	}

	resp := bayou.NewResponse(bayou.StatusOK, "", hdr.NewOrdered(), nil)
	hijacker := &fakeHijacker{err: errors.New("must not be called")}

	hijacked := tu.Tunnel(newContext("unreachable.example:9"), resp, hijacker)
	require.False(t, hijacked)
	require.Equal(t, bayou.StatusBadGateway, resp.Status)
	require.True(t, resp.Last)
}

func TestTunnelSuccessPumpsBothDirections(t *testing.T) {
	driverSide, clientSide := net.Pipe()
	targetConn, remoteSide := net.Pipe()

	tu := &Tunneler{
		Dial: func(network, addr string, timeout time.Duration) (net.Conn, error) {
			return targetConn, nil
		},
	}

	resp := bayou.NewResponse(bayou.StatusOK, "Connection Established", hdr.NewOrdered(), nil)
	hijacker := &fakeHijacker{transport: &pipeTransport{conn: driverSide}}

	done := make(chan bool, 1)
	go func() {
		done <- tu.Tunnel(newContext("remote.example:443"), resp, hijacker)
	}()

	// The head carries Date and Server lines after the status line, so
	// read through its closing blank line before exchanging payload.
	var head []byte
	var err error
	one := make([]byte, 1)
	for len(head) < 4 || string(head[len(head)-4:]) != "\r\n\r\n" {
		_, err = clientSide.Read(one)
		require.NoError(t, err)
		head = append(head, one[0])
	}
	require.Contains(t, string(head), "200 Connection Established")

	_, err = clientSide.Write([]byte("ping"))
	require.NoError(t, err)
	got := make([]byte, 4)
	_, err = io.ReadFull(remoteSide, got)
	require.NoError(t, err)
	require.Equal(t, "ping", string(got))

	_, err = remoteSide.Write([]byte("pong"))
	require.NoError(t, err)
	got = make([]byte, 4)
	_, err = io.ReadFull(clientSide, got)
	require.NoError(t, err)
	require.Equal(t, "pong", string(got))

	clientSide.Close()
	remoteSide.Close()

	select {
	case hijacked := <-done:
		require.True(t, hijacked)
	case <-time.After(2 * time.Second):
		t.Fatal("Tunnel did not return after both sides closed")
	}
}
