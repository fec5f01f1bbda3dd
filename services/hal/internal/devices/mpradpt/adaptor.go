// services/hal/internal/devices/mpradpt/adaptor.go
package mpradpt

import (
	"context"
	"sync/atomic"
	"time"

	"mprcode-go/drivers/mpr"
	"mprcode-go/errcode"
	"mprcode-go/services/hal/internal/consts"
	"mprcode-go/services/hal/internal/halcore"
	"mprcode-go/services/hal/internal/registry"
	"mprcode-go/services/hal/internal/util"
	"mprcode-go/types"
	"mprcode-go/x/mathx"
	"mprcode-go/x/timex"

	"periph.io/x/conn/v3/physic"
)

// DefaultPeriod is used when params omit period_ms.
const DefaultPeriod = time.Second

func init() {
	registry.RegisterBuilder("mpr", mprBuilder{})
}

// Params as supplied in HALDevice.Params.
type Params struct {
	Addr     int    `json:"addr"`      // one of the eight factory addresses; 0 => 0x18
	Unit     string `json:"unit"`      // psi, pa, kpa, torr, inhg, atm, bar
	PeriodMs int    `json:"period_ms"` // 0 => DefaultPeriod
}

type mprBuilder struct{}

func (mprBuilder) Build(in registry.BuildInput) (registry.BuildOutput, error) {
	if in.BusRefType != "i2c" || in.BusRefID == "" {
		return registry.BuildOutput{}, &errcode.E{C: errcode.InvalidParams, Op: "build", Msg: "missing i2c bus"}
	}
	i2c, ok := in.Buses.ByID(in.BusRefID)
	if !ok {
		return registry.BuildOutput{}, &errcode.E{C: errcode.UnknownBus, Op: "build", Msg: in.BusRefID}
	}
	var p Params
	if err := util.DecodeJSON(in.ParamsJSON, &p); err != nil {
		return registry.BuildOutput{}, &errcode.E{C: errcode.InvalidParams, Op: "build", Msg: "params", Err: err}
	}
	if p.Addr < 0 || p.Addr > 0x7F {
		return registry.BuildOutput{}, &errcode.E{C: errcode.InvalidParams, Op: "build", Msg: "addr", Err: mpr.ErrInvalidAddress}
	}
	addr, err := mpr.ParseAddress(uint16(p.Addr))
	if err != nil {
		return registry.BuildOutput{}, &errcode.E{C: errcode.InvalidParams, Op: "build", Msg: "addr", Err: err}
	}
	unit, err := mpr.ParseUnit(p.Unit)
	if err != nil {
		return registry.BuildOutput{}, &errcode.E{C: errcode.InvalidParams, Op: "build", Msg: "unit", Err: err}
	}
	period := DefaultPeriod
	if p.PeriodMs > 0 {
		period = timex.Ms(p.PeriodMs)
	}

	ad := &adaptor{
		id:  in.DeviceID,
		bus: in.BusRefID,
		drv: mpr.New(i2c, addr, nil),
	}
	ad.unit.Store(uint32(unit))
	return registry.BuildOutput{
		Adaptor:     ad,
		BusID:       in.BusRefID,
		SampleEvery: period,
	}, nil
}

// adaptor drives one sensor. Trigger and Collect run on the bus worker;
// Control runs on the service goroutine, hence the atomic unit.
type adaptor struct {
	id   string
	bus  string
	drv  *mpr.Device
	unit atomic.Uint32
}

func (a *adaptor) ID() string { return a.id }

func (a *adaptor) currentUnit() mpr.Unit { return mpr.Unit(a.unit.Load()) }

func (a *adaptor) Capabilities() []halcore.CapInfo {
	return []halcore.CapInfo{{
		Kind: consts.KindPressure,
		Info: types.Info{
			SchemaVersion: 1,
			Driver:        "mpr",
			Detail: types.PressureInfo{
				Sensor: "mpr",
				Addr:   uint16(a.drv.Address()),
				Bus:    a.bus,
				Unit:   a.currentUnit().String(),
				MinPSI: mpr.MinimumPSI,
				MaxPSI: mpr.MaximumPSI,
			},
		},
	}}
}

func (a *adaptor) Trigger(ctx context.Context) (time.Duration, error) {
	if err := a.drv.StartMeasurement(); err != nil {
		return 0, err
	}
	return mpr.SettleTime, nil
}

func (a *adaptor) Collect(ctx context.Context) (halcore.Sample, error) {
	s, err := a.drv.ReadSample()
	if err != nil {
		return nil, err
	}
	u := a.currentUnit()
	ts := timex.NowMs()
	return halcore.Sample{{
		Kind: consts.KindPressure,
		Payload: types.PressureValue{
			Value: mpr.Convert(s.Raw, u),
			Unit:  u.String(),
			Pa:    mathx.RoundInt32(float64(s.Pressure()) / float64(physic.Pascal)),
			Raw:   s.Raw,
			TS:    ts,
		},
		TsMs: ts,
	}}, nil
}

func (a *adaptor) Control(kind, method string, payload any) (any, error) {
	if kind != consts.KindPressure || method != consts.CtrlSetUnit {
		return nil, halcore.ErrUnsupported
	}
	var req types.SetUnit
	switch v := payload.(type) {
	case types.SetUnit:
		req = v
	default:
		if err := util.DecodeJSON(v, &req); err != nil {
			return nil, errcode.InvalidPayload
		}
	}
	if req.Unit == "" {
		return nil, errcode.InvalidPayload
	}
	u, err := mpr.ParseUnit(req.Unit)
	if err != nil {
		return nil, errcode.InvalidParams
	}
	a.unit.Store(uint32(u))
	return types.SetUnitAck{OK: true, Unit: u.String()}, nil
}
