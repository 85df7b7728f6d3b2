package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubscriptionSet(t *testing.T) {
	set := NewSubscriptionSet()
	calls := map[string]int{}
	track := func(name string) func() {
		return func() { calls[name]++ }
	}

	set.Add("a", track("a1"))
	set.Add("a", track("a2"))
	assert.Equal(t, 1, calls["a1"], "replacing a key releases the old subscription")
	assert.Equal(t, 1, set.Len())

	set.Add("b", track("b"))
	assert.True(t, set.Remove("b"))
	assert.False(t, set.Remove("b"))
	assert.Equal(t, 1, calls["b"])

	set.Close()
	assert.Equal(t, 1, calls["a2"])
	assert.Equal(t, 0, set.Len())

	set.Add("c", track("c"))
	assert.Equal(t, 1, calls["c"], "a closed set releases immediately")
	assert.Equal(t, 0, set.Len())
}
