package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedIDGenerator(t *testing.T) {
	g := NewFixedIDGenerator("u1")
	assert.Equal(t, "u1", g.Generate())
	assert.Equal(t, "u1", g.Generate())

	assert.Equal(t, "test-id", NewFixedIDGenerator("").Generate())
}

func TestFixedIDGenerator_Concurrent(t *testing.T) {
	g := NewFixedIDGenerator("same")

	var wg sync.WaitGroup
	ids := make([]string, 50)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = g.Generate()
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, "same", id)
	}
}
