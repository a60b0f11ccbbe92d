package timer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRegistryFires(t *testing.T) {
	r := NewRegistry()

	done := make(chan struct{})
	id := r.Arm(5*time.Millisecond, func() { close(done) })
	assert.NotEmpty(t, id)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
	assert.Equal(t, 0, r.Len())
}

func TestRegistryCancel(t *testing.T) {
	r := NewRegistry()

	var fired atomic.Bool
	id := r.Arm(50*time.Millisecond, func() { fired.Store(true) })

	assert.True(t, r.Cancel(id))
	assert.Equal(t, 0, r.Len())

	time.Sleep(80 * time.Millisecond)
	assert.False(t, fired.Load())
}

func TestRegistryCancelToleratesMissingAndFired(t *testing.T) {
	r := NewRegistry()

	assert.False(t, r.Cancel(""))
	assert.False(t, r.Cancel("no-such-handle"))

	done := make(chan struct{})
	id := r.Arm(time.Millisecond, func() { close(done) })
	<-done
	assert.False(t, r.Cancel(id))
}

func TestRegistryStopAll(t *testing.T) {
	r := NewRegistry()

	var fired atomic.Int32
	for i := 0; i < 5; i++ {
		r.Arm(50*time.Millisecond, func() { fired.Add(1) })
	}
	assert.Equal(t, 5, r.Len())

	r.StopAll()
	assert.Equal(t, 0, r.Len())

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}
