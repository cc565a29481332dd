package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowConsumesBurstThenDenies(t *testing.T) {
	l := New()
	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("1.2.3.4", 3, 0.0001), "burst token %d", i)
	}
	assert.False(t, l.Allow("1.2.3.4", 3, 0.0001))
}

func TestAllowKeysAreIndependent(t *testing.T) {
	l := New()
	assert.True(t, l.Allow("a", 1, 0.0001))
	assert.False(t, l.Allow("a", 1, 0.0001))
	assert.True(t, l.Allow("b", 1, 0.0001))
}

func TestAllowRefillsOverTime(t *testing.T) {
	l := New()
	assert.True(t, l.Allow("k", 1, 1000))
	assert.False(t, l.Allow("k", 1, 1000))

	time.Sleep(5 * time.Millisecond)
	assert.True(t, l.Allow("k", 1, 1000))
}
