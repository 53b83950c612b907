package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestDeterministicClock_Sequence(t *testing.T) {
	c := NewDeterministicClock(epoch, time.Second)

	assert.Equal(t, epoch, c.Now())
	assert.Equal(t, epoch.Add(time.Second), c.Now())
	assert.Equal(t, int64(2), c.Calls())
}

func TestDeterministicClock_Reset(t *testing.T) {
	c := NewDeterministicClock(epoch, time.Minute)
	c.Now()
	c.Now()

	c.Reset()
	assert.Equal(t, epoch, c.Now())
}

func TestDeterministicClock_ThreadSafe(t *testing.T) {
	c := NewDeterministicClock(epoch, time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Now()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1000), c.Calls())
}
