package heartbeat

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mprcode-go/bus"
)

func TestInterval(t *testing.T) {
	iv, ok := interval(map[string]any{"interval": 2})
	require.True(t, ok)
	assert.Equal(t, 2*time.Second, iv)

	iv, ok = interval(map[string]any{"interval": 0.05})
	require.True(t, ok)
	assert.Equal(t, 50*time.Millisecond, iv)

	for _, bad := range []any{nil, "2", map[string]any{}, map[string]any{"interval": -1}} {
		_, ok := interval(bad)
		assert.False(t, ok, "%v", bad)
	}
}

func TestBeatsFollowConfig(t *testing.T) {
	l := logrus.New()
	l.SetOutput(io.Discard)

	b := bus.NewBus(8)
	conn := b.NewConnection("test")
	conn.Publish(conn.NewMessage(topicConfigHeartbeat, map[string]any{"interval": 0.02}, true))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, (&Service{Log: logrus.NewEntry(l)}).Start(ctx, b.NewConnection("hb")))

	sub := conn.Subscribe(topicHeartbeat)
	defer conn.Unsubscribe(sub)

	var last Beat
	for i := 0; i < 2; i++ {
		select {
		case m := <-sub.Channel():
			last = m.Payload.(Beat)
		case <-time.After(time.Second):
			t.Fatal("no heartbeat")
		}
	}
	assert.GreaterOrEqual(t, last.Seq, uint64(2))
	assert.Positive(t, last.Uptime)
}
