package timex

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMs(t *testing.T) {
	assert.Equal(t, 250*time.Millisecond, Ms(250))
	assert.Equal(t, time.Duration(0), Ms(-5))
}

func TestNowMs(t *testing.T) {
	before := time.Now().UnixMilli()
	got := NowMs()
	assert.GreaterOrEqual(t, got, before)
	assert.LessOrEqual(t, got, time.Now().UnixMilli())
}
