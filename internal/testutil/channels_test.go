package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReceiveReturnsValue(t *testing.T) {
	ch := make(chan int, 1)
	ch <- 42
	assert.Equal(t, 42, Receive(t, ch, ShortTestTimeout, "no value"))
}

func TestWaitForChannelClosed(t *testing.T) {
	ch := make(chan struct{})
	close(ch)
	WaitForChannel(t, ch, ShortTestTimeout, "channel not closed")
}

func TestRequireNoValueOnIdleChannel(t *testing.T) {
	RequireNoValue(t, make(chan int), 10*time.Millisecond, "idle channel yielded")
}
