package wire

import (
	"context"
	"io"

	"github.com/badu/bayou/async"
)

// fakeSource replays a fixed list of byte chunks, then io.EOF,
// resolving synchronously — good enough to exercise the framers'
// logic without a real socket.
type fakeSource struct {
	chunks [][]byte
	i      int
}

func (f *fakeSource) ReadChunk(ctx context.Context) *async.Future[[]byte] {
	if f.i >= len(f.chunks) {
		return async.Completed[[]byte](nil, io.EOF)
	}
	c := f.chunks[f.i]
	f.i++
	return async.Completed(c, nil)
}
