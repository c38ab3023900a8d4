package mongrel2

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeadersSetAndGetCaseInsensitive(t *testing.T) {
	hs := NewHeaders()
	hs.Set("Content-Type", "text/plain")

	assert.Equal(t, []string{"text/plain"}, hs.Get("content-type"))
	assert.Equal(t, "text/plain", hs.First("CONTENT-TYPE"))
}

func TestHeadersPreservesInsertionOrder(t *testing.T) {
	hs := NewHeaders()
	hs.Set("Server", "mongrel2-handler")
	hs.Set("Content-Type", "text/plain")
	hs.Set("Date", "now")

	var order []string
	hs.Each(func(name string, _ []string) {
		order = append(order, name)
	})

	assert.Equal(t, []string{"Server", "Content-Type", "Date"}, order)
}

func TestHeadersSetReplacesWithoutReordering(t *testing.T) {
	hs := NewHeaders()
	hs.Set("A", "1")
	hs.Set("B", "2")
	hs.Set("A", "3")

	var order []string
	hs.Each(func(name string, _ []string) {
		order = append(order, name)
	})

	assert.Equal(t, []string{"A", "B"}, order)
	assert.Equal(t, []string{"3"}, hs.Get("A"))
}

func TestHeadersAppend(t *testing.T) {
	hs := NewHeaders()
	hs.Append("Set-Cookie", "a=1")
	hs.Append("Set-Cookie", "b=2")

	assert.Equal(t, []string{"a=1", "b=2"}, hs.Get("Set-Cookie"))
}

func TestHeadersDelete(t *testing.T) {
	hs := NewHeaders()
	hs.Set("A", "1")
	hs.Set("B", "2")
	hs.Delete("a")

	assert.False(t, hs.Has("A"))
	assert.True(t, hs.Has("B"))
	assert.Equal(t, 1, hs.Len())
}

func TestHeadersReset(t *testing.T) {
	hs := NewHeaders()
	hs.Set("A", "1")
	hs.Reset()

	assert.Equal(t, 0, hs.Len())
	assert.False(t, hs.Has("A"))
}
