package async

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollFastPath(t *testing.T) {
	f := Completed(42, error(nil))
	v, err, ok := f.Poll()
	require.True(t, ok)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestOnCompletionAfterResolve(t *testing.T) {
	f, p := New[string]()
	p.Complete("done", nil)
	got := ""
	f.OnCompletion(func(v string, err error) {
		got = v
	})
	assert.Equal(t, "done", got)
}

func TestOnCompletionBeforeResolve(t *testing.T) {
	f, p := New[string]()
	got := ""
	f.OnCompletion(func(v string, err error) {
		got = v
	})
	p.Complete("later", nil)
	assert.Equal(t, "later", got)
}

func TestOnCompletionTwiceRejected(t *testing.T) {
	f, _ := New[int]()
	f.OnCompletion(func(int, error) {})
	assert.Panics(t, func() {
		f.OnCompletion(func(int, error) {})
	})
}

func TestCancelPropagatesCanceled(t *testing.T) {
	f, p := New[int]()
	p.Cancel(nil)
	_, err, ok := f.Poll()
	require.True(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMap(t *testing.T) {
	f, p := New[int]()
	mapped := Map(f, func(v int) string { return "n" })
	p.Complete(7, nil)
	v, err := mapped.Await()
	require.NoError(t, err)
	assert.Equal(t, "n", v)
}

func TestTimeoutFiresBeforeCompletion(t *testing.T) {
	f, _ := New[int]()
	out := Timeout(f, 5*time.Millisecond)
	_, err := out.Await()
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTimeoutLosesToFastCompletion(t *testing.T) {
	f, p := New[int]()
	out := Timeout(f, 50*time.Millisecond)
	p.Complete(9, nil)
	v, err := out.Await()
	require.NoError(t, err)
	assert.Equal(t, 9, v)
}
