package entity

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromReaderYieldsAllBytesThenEOF(t *testing.T) {
	b := FromReader(strings.NewReader("hello world"))
	chunk, err := b.Next(context.Background()).Await()
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(chunk))

	_, err = b.Next(context.Background()).Await()
	assert.ErrorIs(t, err, io.EOF)
}

func TestAsReaderAdapts(t *testing.T) {
	b := FromReader(strings.NewReader("payload"))
	r := AsReader(b)
	defer r.Close()
	buf := make([]byte, 64)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(buf[:n]))
}

func TestSingleUseEntityRejectsSecondOpen(t *testing.T) {
	e := New(func() (Body, error) { return FromReader(strings.NewReader("x")), nil }, false)
	_, err := e.Open()
	require.NoError(t, err)
	_, err = e.Open()
	assert.Error(t, err)
}

func TestSharableEntityAllowsRepeatedOpen(t *testing.T) {
	e := New(func() (Body, error) { return FromReader(strings.NewReader("x")), nil }, true)
	_, err := e.Open()
	require.NoError(t, err)
	_, err = e.Open()
	assert.NoError(t, err)
}

func TestEmptyEntityHasNoBytes(t *testing.T) {
	e := Empty()
	b, err := e.Open()
	require.NoError(t, err)
	_, err = b.Next(context.Background()).Await()
	assert.ErrorIs(t, err, io.EOF)
}
