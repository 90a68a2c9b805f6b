package cookie

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJarGetFromIncomingHeader(t *testing.T) {
	j := NewJar("example.com", "/", "a=1; b=2")
	v, ok := j.Get("b")
	require.True(t, ok)
	assert.Equal(t, "2", v)
}

func TestJarPutThenGetPrefersStaged(t *testing.T) {
	j := NewJar("example.com", "/", "a=1")
	j.Put("a", "override", nil, false, false)
	v, _ := j.Get("a")
	assert.Equal(t, "override", v)
}

func TestJarRemoveEmitsDeleteSetCookie(t *testing.T) {
	j := NewJar("example.com", "/", "a=1")
	j.Remove("a")
	headers := j.SetCookieHeaders()
	require.Len(t, headers, 1)
	assert.Contains(t, headers[0], "Max-Age=0")
}

func TestStorageMatchesExactDomain(t *testing.T) {
	s := NewStorage(0)
	s.Store("example.com", "/", []string{"sid=abc; Path=/"})
	matches := s.Match("example.com", "/page", false)
	require.Len(t, matches, 1)
	assert.Equal(t, "sid", matches[0].Name)
}

func TestStorageRejectsPathMismatch(t *testing.T) {
	s := NewStorage(0)
	s.Store("example.com", "/account", []string{"sid=abc; Path=/account"})
	matches := s.Match("example.com", "/other", false)
	assert.Empty(t, matches)
}

func TestStorageSecureOnlyGating(t *testing.T) {
	s := NewStorage(0)
	s.Store("example.com", "/", []string{"sid=abc; Path=/; Secure"})
	assert.Empty(t, s.Match("example.com", "/", false))
	assert.Len(t, s.Match("example.com", "/", true), 1)
}

func TestStorageDeleteRemovesCookie(t *testing.T) {
	s := NewStorage(0)
	s.Store("example.com", "/", []string{"sid=abc; Path=/"})
	s.Store("example.com", "/", []string{"sid=abc; Path=/; Max-Age=0"})
	assert.Empty(t, s.Match("example.com", "/", false))
}

func TestDomainMatchesSubdomain(t *testing.T) {
	assert.True(t, domainMatches("example.com", "www.example.com"))
	assert.False(t, domainMatches("example.com", "notexample.com"))
}
