package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlotCache(t *testing.T) {
	c := NewSlotCache(8, time.Minute)
	slots := []Slot{{Time: "09:00", Available: true}}

	assert.True(t, c.Put("doc-1", "2024-06-10", c.Generation("doc-1"), slots))
	assert.True(t, c.Put("doc-1", "2024-06-11", c.Generation("doc-1"), slots))
	assert.True(t, c.Put("doc-2", "2024-06-10", c.Generation("doc-2"), slots))

	got, ok := c.Get("doc-1", "2024-06-10")
	assert.True(t, ok)
	assert.Equal(t, slots, got)

	got[0].Available = false
	again, _ := c.Get("doc-1", "2024-06-10")
	assert.True(t, again[0].Available)

	c.InvalidateDoctor("doc-1")
	_, ok = c.Get("doc-1", "2024-06-10")
	assert.False(t, ok)
	_, ok = c.Get("doc-1", "2024-06-11")
	assert.False(t, ok)
	_, ok = c.Get("doc-2", "2024-06-10")
	assert.True(t, ok)
}

func TestSlotCacheRejectsResultOlderThanInvalidation(t *testing.T) {
	c := NewSlotCache(8, time.Minute)
	gen := c.Generation("doc-1")

	// A write lands between the store read and the Put.
	c.InvalidateDoctor("doc-1")

	assert.False(t, c.Put("doc-1", "2024-06-10", gen, []Slot{{Time: "10:00", Available: true}}))
	_, ok := c.Get("doc-1", "2024-06-10")
	assert.False(t, ok)

	// Other doctors are unaffected.
	assert.True(t, c.Put("doc-2", "2024-06-10", gen, []Slot{{Time: "10:00"}}))
}

func TestSlotCacheDisabled(t *testing.T) {
	c := NewSlotCache(0, time.Minute)
	assert.Nil(t, c)

	assert.False(t, c.Put("doc-1", "2024-06-10", c.Generation("doc-1"), []Slot{{Time: "09:00"}}))
	_, ok := c.Get("doc-1", "2024-06-10")
	assert.False(t, ok)
	c.InvalidateDoctor("doc-1")
}
