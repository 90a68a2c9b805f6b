package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	"github.com/badu/bayou"
	"github.com/badu/bayou/entity"
	"github.com/badu/bayou/hdr"
	"github.com/badu/bayou/pool"
	"github.com/badu/bayou/url"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.ReadTimeout = 2 * time.Second
	cfg.WriteTimeout = 2 * time.Second
	cfg.Await100Timeout = 500 * time.Millisecond
	return &cfg
}

func newPipeConnection() (*Connection, net.Conn) {
	clientSide, serverSide := net.Pipe()
	return newConnection(clientSide, pool.Destination{Scheme: "http", Host: "example.com", Port: "80"}, 0), serverSide
}

// readHead drains conn until a full head (terminated by the blank
// line) has arrived, returning it so a fake-server goroutine can act
// on a complete request before answering.
func readHead(conn net.Conn) (string, error) {
	var buf bytes.Buffer
	tmp := make([]byte, 4096)
	for {
		n, err := conn.Read(tmp)
		buf.Write(tmp[:n])
		if bytes.Contains(buf.Bytes(), []byte("\r\n\r\n")) {
			return buf.String(), nil
		}
		if err != nil {
			return "", err
		}
	}
}

func TestRoundTripFixedLengthResponse(t *testing.T) {
	conn, server := newPipeConnection()
	defer server.Close()

	errCh := make(chan error, 1)
	go func() {
		if _, err := readHead(server); err != nil {
			errCh <- err
			return
		}
		_, err := server.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello"))
		errCh <- err
	}()

	headers := hdr.NewOrdered()
	headers.Set(hdr.Host, "example.com")
	req := bayou.NewRequest(bayou.GET, "/", url.OriginForm, 1, "example.com", "http", "", nil, headers, nil)

	var drained *bool
	resp, err := conn.RoundTrip(context.Background(), req, "/", testConfig(), func(ok bool) { drained = &ok })
	require.NoError(t, err)
	require.NoError(t, <-errCh)
	require.Equal(t, bayou.StatusOK, resp.Status)
	require.NotNil(t, resp.Entity)

	body, err := resp.Entity.Open()
	require.NoError(t, err)
	data, err := io.ReadAll(entity.AsReader(body))
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
	require.NotNil(t, drained)
	require.True(t, *drained)
}

func TestRoundTripChunkedResponse(t *testing.T) {
	conn, server := newPipeConnection()
	defer server.Close()

	errCh := make(chan error, 1)
	go func() {
		if _, err := readHead(server); err != nil {
			errCh <- err
			return
		}
		_, err := server.Write([]byte("HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nhello\r\n0\r\n\r\n"))
		errCh <- err
	}()

	headers := hdr.NewOrdered()
	headers.Set(hdr.Host, "example.com")
	req := bayou.NewRequest(bayou.GET, "/", url.OriginForm, 1, "example.com", "http", "", nil, headers, nil)

	resp, err := conn.RoundTrip(context.Background(), req, "/", testConfig(), func(bool) {})
	require.NoError(t, err)
	require.NoError(t, <-errCh)
	require.Equal(t, bayou.StatusOK, resp.Status)

	body, err := resp.Entity.Open()
	require.NoError(t, err)
	data, err := io.ReadAll(entity.AsReader(body))
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
}

func TestRoundTripAwaits100ContinueBeforeSendingBody(t *testing.T) {
	conn, server := newPipeConnection()
	defer server.Close()

	errCh := make(chan error, 1)
	go func() {
		if _, err := readHead(server); err != nil {
			errCh <- err
			return
		}
		if _, err := server.Write([]byte("HTTP/1.1 100 Continue\r\n\r\n")); err != nil {
			errCh <- err
			return
		}

		got := make([]byte, 2)
		if _, err := io.ReadFull(server, got); err != nil {
			errCh <- err
			return
		}
		if string(got) != "hi" {
			errCh <- fmt.Errorf("expected body %q, got %q", "hi", got)
			return
		}

		_, err := server.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok"))
		errCh <- err
	}()

	headers := hdr.NewOrdered()
	headers.Set(hdr.Host, "example.com")
	headers.Set(hdr.Expect, "100-continue")
	n := int64(2)
	body := entity.New(func() (entity.Body, error) { return entity.FromReader(bytes.NewReader([]byte("hi"))), nil }, false)
	body.ContentLength = &n

	req := bayou.NewRequest(bayou.POST, "/", url.OriginForm, 1, "example.com", "http", "", nil, headers, body)

	resp, err := conn.RoundTrip(context.Background(), req, "/", testConfig(), func(bool) {})
	require.NoError(t, err)
	require.NoError(t, <-errCh)
	require.Equal(t, bayou.StatusOK, resp.Status)
}

func TestRoundTripWriteErrorReportsUndrained(t *testing.T) {
	conn, server := newPipeConnection()
	server.Close() // peer gone before the request is even written

	headers := hdr.NewOrdered()
	headers.Set(hdr.Host, "example.com")
	req := bayou.NewRequest(bayou.GET, "/", url.OriginForm, 1, "example.com", "http", "", nil, headers, nil)

	var drained *bool
	_, err := conn.RoundTrip(context.Background(), req, "/", testConfig(), func(ok bool) { drained = &ok })
	require.Error(t, err)
	require.NotNil(t, drained)
	require.False(t, *drained)
	require.False(t, conn.Alive())
}
