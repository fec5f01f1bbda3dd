package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tinygo.org/x/drivers"

	"mprcode-go/bus"
	"mprcode-go/errcode"
	"mprcode-go/services/hal/internal/consts"
	_ "mprcode-go/services/hal/internal/devices/mpradpt"
	"mprcode-go/services/hal/internal/metrics"
	"mprcode-go/services/hal/internal/platform"
	"mprcode-go/types"
)

type fixture struct {
	conn   *bus.Connection
	sensor *platform.SimSensor
	simBus *platform.SimBus
}

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func start(t *testing.T, devices ...types.HALDevice) fixture {
	t.Helper()
	sensor := platform.NewSimSensor(0x18)
	sensor.SetConvTime(0)
	simBus := platform.NewSimBus(sensor)
	buses := platform.NewI2CFactory(map[string]drivers.I2C{"i2c0": simBus})

	b := bus.NewBus(32)
	conn := b.NewConnection("test")
	m := metrics.New()
	require.NoError(t, m.Register(prometheus.NewRegistry()))
	s := New(b.NewConnection("hal"), buses, Options{Log: quietLog(), Metrics: m})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.Run(ctx)

	if devices != nil {
		conn.Publish(conn.NewMessage(topicConfigHAL, types.HALConfig{Devices: devices}, true))
	}
	return fixture{conn: conn, sensor: sensor, simBus: simBus}
}

func mprDevice(id string, params map[string]any) types.HALDevice {
	return types.HALDevice{
		ID:     id,
		Type:   "mpr",
		Params: params,
		BusRef: types.BusRef{Type: "i2c", ID: "i2c0"},
	}
}

// waitFor returns the first payload on topic accepted by match.
func waitFor[T any](t *testing.T, c *bus.Connection, topic bus.Topic, match func(T) bool) T {
	t.Helper()
	sub := c.Subscribe(topic)
	defer c.Unsubscribe(sub)
	deadline := time.After(3 * time.Second)
	for {
		select {
		case m := <-sub.Channel():
			if v, ok := m.Payload.(T); ok && match(v) {
				return v
			}
		case <-deadline:
			var zero T
			t.Fatalf("timeout waiting on %s", topic)
			return zero
		}
	}
}

func accept[T any](T) bool { return true }

func ctrl(t *testing.T, c *bus.Connection, id int, verb string, payload any) any {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	reply, err := c.RequestWait(ctx, c.NewMessage(
		bus.Topic{consts.TokHAL, consts.TokCapability, consts.KindPressure, id, consts.TokControl, verb}, payload, false))
	require.NoError(t, err)
	return reply.Payload
}

func TestPublishesInfoStateAndValues(t *testing.T) {
	f := start(t, mprDevice("p0", map[string]any{"unit": "kpa", "period_ms": 200}))

	st := waitFor(t, f.conn, topicHALState, func(s types.HALState) bool { return s.Level == consts.LevelReady })
	assert.Equal(t, "configured", st.Status)

	info := waitFor(t, f.conn, capTopic(consts.KindPressure, 0, consts.TokInfo), accept[types.Info])
	detail := info.Detail.(types.PressureInfo)
	assert.Equal(t, "kpa", detail.Unit)
	assert.Equal(t, "i2c0", detail.Bus)

	v := waitFor(t, f.conn, capTopic(consts.KindPressure, 0, consts.TokValue), accept[types.PressureValue])
	assert.Equal(t, "kpa", v.Unit)
	assert.InDelta(t, 12.5*6.89476, v.Value, 0.01)
	assert.Equal(t, uint32(0x800000), v.Raw)

	cs := waitFor(t, f.conn, capTopic(consts.KindPressure, 0, consts.TokState), accept[types.CapabilityState])
	assert.Equal(t, types.LinkUp, cs.Link)
}

func TestBusyDegradesState(t *testing.T) {
	f := start(t)
	f.sensor.SetConvTime(time.Hour)
	f.conn.Publish(f.conn.NewMessage(topicConfigHAL,
		types.HALConfig{Devices: []types.HALDevice{mprDevice("p0", nil)}}, true))

	cs := waitFor(t, f.conn, capTopic(consts.KindPressure, 0, consts.TokState),
		func(s types.CapabilityState) bool { return s.Link == types.LinkDegraded })
	assert.Equal(t, string(errcode.Busy), cs.Error)

	// Recovers once conversions complete.
	f.sensor.SetConvTime(0)
	assert.Equal(t, types.ReadNowAck{OK: true}, ctrl(t, f.conn, 0, consts.CtrlReadNow, nil))
	waitFor(t, f.conn, capTopic(consts.KindPressure, 0, consts.TokState),
		func(s types.CapabilityState) bool { return s.Link == types.LinkUp })
}

func TestTransportFailureIsIOError(t *testing.T) {
	f := start(t)
	f.simBus.FailWith(platform.ErrNack)
	f.conn.Publish(f.conn.NewMessage(topicConfigHAL,
		types.HALConfig{Devices: []types.HALDevice{mprDevice("p0", nil)}}, true))

	cs := waitFor(t, f.conn, capTopic(consts.KindPressure, 0, consts.TokState),
		func(s types.CapabilityState) bool { return s.Link == types.LinkDegraded })
	assert.Equal(t, string(errcode.IOError), cs.Error)
}

func TestControlVerbs(t *testing.T) {
	f := start(t, mprDevice("p0", map[string]any{"period_ms": 3600000}))
	waitFor(t, f.conn, topicHALState, func(s types.HALState) bool { return s.Level == consts.LevelReady })

	t.Run("read_now", func(t *testing.T) {
		assert.Equal(t, types.ReadNowAck{OK: true}, ctrl(t, f.conn, 0, consts.CtrlReadNow, nil))
		waitFor(t, f.conn, capTopic(consts.KindPressure, 0, consts.TokValue), accept[types.PressureValue])
	})

	t.Run("set_rate clamps", func(t *testing.T) {
		got := ctrl(t, f.conn, 0, consts.CtrlSetRate, types.SetRate{Period: 10 * time.Millisecond})
		assert.Equal(t, types.SetRateAck{OK: true, Period: MinPeriod}, got)

		got = ctrl(t, f.conn, 0, consts.CtrlSetRate, types.SetRate{Period: 48 * time.Hour})
		assert.Equal(t, types.SetRateAck{OK: true, Period: MaxPeriod}, got)

		got = ctrl(t, f.conn, 0, consts.CtrlSetRate, types.SetRate{})
		assert.Equal(t, types.ErrorReply{Error: string(errcode.InvalidParams)}, got)
	})

	t.Run("set_unit", func(t *testing.T) {
		got := ctrl(t, f.conn, 0, consts.CtrlSetUnit, types.SetUnit{Unit: "inHg"})
		assert.Equal(t, types.SetUnitAck{OK: true, Unit: "inhg"}, got)
		info := waitFor(t, f.conn, capTopic(consts.KindPressure, 0, consts.TokInfo), accept[types.Info])
		assert.Equal(t, "inhg", info.Detail.(types.PressureInfo).Unit)

		got = ctrl(t, f.conn, 0, consts.CtrlSetUnit, types.SetUnit{Unit: "cubits"})
		assert.Equal(t, types.ErrorReply{Error: string(errcode.InvalidParams)}, got)
	})

	t.Run("errors", func(t *testing.T) {
		assert.Equal(t, types.ErrorReply{Error: string(errcode.Unsupported)},
			ctrl(t, f.conn, 0, "calibrate", nil))
		assert.Equal(t, types.ErrorReply{Error: string(errcode.UnknownCapability)},
			ctrl(t, f.conn, 7, consts.CtrlReadNow, nil))
	})
}

func TestRemovedDeviceGoesDown(t *testing.T) {
	f := start(t, mprDevice("p0", nil))
	waitFor(t, f.conn, capTopic(consts.KindPressure, 0, consts.TokInfo), accept[types.Info])

	f.conn.Publish(f.conn.NewMessage(topicConfigHAL, types.HALConfig{}, true))
	cs := waitFor(t, f.conn, capTopic(consts.KindPressure, 0, consts.TokState),
		func(s types.CapabilityState) bool { return s.Link == types.LinkDown })
	assert.Empty(t, cs.Error)

	got := ctrl(t, f.conn, 0, consts.CtrlReadNow, nil)
	assert.Equal(t, types.ErrorReply{Error: string(errcode.UnknownCapability)}, got)
}

func TestBadConfig(t *testing.T) {
	f := start(t, types.HALDevice{ID: "x", Type: "mpr", BusRef: types.BusRef{Type: "i2c", ID: "i2c9"}})
	st := waitFor(t, f.conn, topicHALState, func(s types.HALState) bool { return s.Level == consts.LevelError })
	assert.Equal(t, "apply_config_failed", st.Status)
	assert.Contains(t, st.Error, string(errcode.UnknownBus))

	f.conn.Publish(f.conn.NewMessage(topicConfigHAL, "not a config", true))
	st = waitFor(t, f.conn, topicHALState, func(s types.HALState) bool { return s.Status == "config_wrong_type" })
	assert.Equal(t, consts.LevelError, st.Level)
}
