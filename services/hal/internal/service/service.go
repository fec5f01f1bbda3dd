// services/hal/internal/service/service.go
package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"mprcode-go/bus"
	"mprcode-go/errcode"
	"mprcode-go/services/hal/internal/consts"
	"mprcode-go/services/hal/internal/halcore"
	"mprcode-go/services/hal/internal/metrics"
	"mprcode-go/services/hal/internal/registry"
	"mprcode-go/services/hal/internal/util"
	"mprcode-go/services/hal/internal/worker"
	"mprcode-go/types"
	"mprcode-go/x/mathx"
)

// Sampling period limits applied to config and set_rate.
const (
	MinPeriod = 200 * time.Millisecond
	MaxPeriod = time.Hour

	firstReadDelay = 200 * time.Millisecond
)

type devEntry struct {
	adaptor halcore.Adaptor
	caps    map[string]int // kind -> numeric capability id
	busID   string
}

type capKey struct {
	kind string
	id   int
}

// Options tune a Service. Zero values are usable.
type Options struct {
	Log     *logrus.Entry
	Metrics *metrics.Metrics
	Worker  halcore.WorkerConfig
}

type Service struct {
	conn  *bus.Connection
	buses halcore.I2CBusFactory
	log   *logrus.Entry
	met   *metrics.Metrics
	wcfg  halcore.WorkerConfig

	workers map[string]*worker.MeasureWorker // busID -> worker
	results chan halcore.Result

	devices map[string]devEntry

	capToDev  map[capKey]string // (kind,id) -> devID
	nextCapID map[string]int

	devPeriod  map[string]time.Duration
	devNextDue map[string]time.Time

	timer *time.Timer
}

var (
	topicConfigHAL = bus.Topic{consts.TokConfig, consts.TokHAL}
	topicCtrl      = bus.Topic{consts.TokHAL, consts.TokCapability, bus.SingleWild, bus.SingleWild, consts.TokControl, bus.SingleWild}
	topicHALState  = bus.Topic{consts.TokHAL, consts.TokState}
)

func New(conn *bus.Connection, buses halcore.I2CBusFactory, opts Options) *Service {
	log := opts.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Service{
		conn:       conn,
		buses:      buses,
		log:        log.WithField("svc", "hal"),
		met:        opts.Metrics,
		wcfg:       opts.Worker,
		workers:    map[string]*worker.MeasureWorker{},
		results:    make(chan halcore.Result, 64),
		devices:    map[string]devEntry{},
		capToDev:   map[capKey]string{},
		nextCapID:  map[string]int{},
		devPeriod:  map[string]time.Duration{},
		devNextDue: map[string]time.Time{},
	}
}

// Run serves config, control and measurement results until ctx ends.
func (s *Service) Run(ctx context.Context) {
	cfgSub := s.conn.Subscribe(topicConfigHAL)
	ctrlSub := s.conn.Subscribe(topicCtrl)
	defer s.conn.Unsubscribe(cfgSub)
	defer s.conn.Unsubscribe(ctrlSub)

	s.publishState(consts.LevelIdle, "awaiting_config", nil)

	s.timer = time.NewTimer(time.Hour)
	if !s.timer.Stop() {
		util.DrainTimer(s.timer)
	}

	for {
		if next := s.earliestDevDue(); next.IsZero() {
			util.ResetTimer(s.timer, time.Hour)
		} else {
			util.ResetTimer(s.timer, time.Until(next))
		}

		select {
		case <-ctx.Done():
			s.publishState(consts.LevelStopped, "context_cancelled", nil)
			return

		case msg := <-cfgSub.Channel():
			cfg, ok := msg.Payload.(types.HALConfig)
			if !ok {
				s.log.WithField("payload", msg.Payload).Warn("config of wrong type")
				s.publishState(consts.LevelError, "config_wrong_type", nil)
				continue
			}
			if err := s.applyConfig(ctx, cfg); err != nil {
				s.log.WithError(err).Error("apply config")
				s.publishState(consts.LevelError, "apply_config_failed", err)
				continue
			}
			s.publishState(consts.LevelReady, "configured", nil)

		case msg := <-ctrlSub.Channel():
			s.handleControl(msg)

		case <-s.timer.C:
			now := time.Now()
			for devID, due := range s.devNextDue {
				if !now.Before(due) {
					if !s.submitMeasure(devID, false) {
						s.log.WithField("device", devID).Debug("worker queue full, sample skipped")
					}
					s.bumpDevNext(devID, now)
				}
			}

		case r := <-s.results:
			s.handleResult(r)
		}
	}
}

// applyConfig reconciles the running device set with cfg. Devices that fail
// to build are logged and skipped; the error lists them all.
func (s *Service) applyConfig(ctx context.Context, cfg types.HALConfig) error {
	seen := map[string]struct{}{}
	var errs []error

	for i := range cfg.Devices {
		d := &cfg.Devices[i]
		seen[d.ID] = struct{}{}

		if _, exists := s.devices[d.ID]; exists {
			continue
		}
		log := s.log.WithFields(logrus.Fields{"device": d.ID, "type": d.Type})

		b, ok := registry.Lookup(d.Type)
		if !ok {
			log.Warn("unknown device type")
			errs = append(errs, &errcode.E{C: errcode.Unsupported, Op: "build", Msg: d.ID + ": type " + d.Type})
			continue
		}

		out, err := b.Build(registry.BuildInput{
			Ctx:        ctx,
			Buses:      s.buses,
			DeviceID:   d.ID,
			Type:       d.Type,
			ParamsJSON: d.Params,
			BusRefType: d.BusRef.Type,
			BusRefID:   d.BusRef.ID,
		})
		if err != nil {
			log.WithError(err).Warn("build failed")
			errs = append(errs, err)
			continue
		}

		if out.BusID != "" {
			if _, ok := s.workers[out.BusID]; !ok {
				w := worker.New(s.wcfg, s.results)
				w.Start(ctx)
				s.workers[out.BusID] = w
				log.WithField("bus", out.BusID).Debug("worker started")
			}
		}

		ad := out.Adaptor
		entry := devEntry{adaptor: ad, busID: out.BusID, caps: map[string]int{}}

		for _, ci := range ad.Capabilities() {
			id := s.nextCapID[ci.Kind]
			s.nextCapID[ci.Kind]++

			entry.caps[ci.Kind] = id
			s.capToDev[capKey{kind: ci.Kind, id: id}] = d.ID

			s.pubRet(ci.Kind, id, consts.TokInfo, ci.Info)
			s.pubRet(ci.Kind, id, consts.TokState, types.CapabilityState{
				Link: types.LinkUp,
				TS:   time.Now(),
			})
		}
		s.devices[d.ID] = entry

		if out.SampleEvery > 0 {
			s.devPeriod[d.ID] = mathx.Clamp(out.SampleEvery, MinPeriod, MaxPeriod)
			s.devNextDue[d.ID] = time.Now().Add(firstReadDelay)
		}
		log.WithField("period", s.devPeriod[d.ID]).Info("device added")
	}

	for devID, ent := range s.devices {
		if _, ok := seen[devID]; ok {
			continue
		}
		for kind, id := range ent.caps {
			s.pubRet(kind, id, consts.TokInfo, nil)
			s.pubRet(kind, id, consts.TokState, types.CapabilityState{Link: types.LinkDown, TS: time.Now()})
			delete(s.capToDev, capKey{kind: kind, id: id})
		}
		delete(s.devices, devID)
		delete(s.devPeriod, devID)
		delete(s.devNextDue, devID)
		s.met.Forget(devID)
		s.log.WithField("device", devID).Info("device removed")
	}
	return errors.Join(errs...)
}

// ---- control ----

func (s *Service) handleControl(msg *bus.Message) {
	if len(msg.Topic) < 6 {
		s.replyErr(msg, errcode.InvalidTopic)
		return
	}
	kind, _ := msg.Topic[2].(string)
	idNum, ok := asInt(msg.Topic[3])
	if !ok || kind == "" {
		s.replyErr(msg, errcode.InvalidTopic)
		return
	}
	devID, ok := s.capToDev[capKey{kind: kind, id: idNum}]
	if !ok {
		s.replyErr(msg, errcode.UnknownCapability)
		return
	}
	method, _ := msg.Topic[5].(string)
	log := s.log.WithFields(logrus.Fields{"device": devID, "method": method})

	switch method {
	case consts.CtrlReadNow:
		if s.submitMeasure(devID, true) {
			s.bumpDevNext(devID, time.Now())
			s.conn.Reply(msg, types.ReadNowAck{OK: true}, false)
		} else {
			s.replyErr(msg, errcode.Busy)
		}

	case consts.CtrlSetRate:
		var req types.SetRate
		switch v := msg.Payload.(type) {
		case types.SetRate:
			req = v
		default:
			if err := util.DecodeJSON(v, &req); err != nil {
				s.replyErr(msg, errcode.InvalidPayload)
				return
			}
		}
		if req.Period <= 0 {
			s.replyErr(msg, errcode.InvalidParams)
			return
		}
		p := mathx.Clamp(req.Period, MinPeriod, MaxPeriod)
		s.devPeriod[devID] = p
		s.bumpDevNext(devID, time.Now())
		log.WithField("period", p).Info("rate changed")
		s.conn.Reply(msg, types.SetRateAck{OK: true, Period: p}, false)

	default:
		ent := s.devices[devID]
		res, err := ent.adaptor.Control(kind, method, msg.Payload)
		if err != nil {
			if errors.Is(err, halcore.ErrUnsupported) {
				s.replyErr(msg, errcode.Unsupported)
			} else {
				s.replyErr(msg, errcode.Of(err))
			}
			return
		}
		// Capability info carries the unit; republish it.
		if id, ok := ent.caps[kind]; ok {
			for _, ci := range ent.adaptor.Capabilities() {
				if ci.Kind == kind {
					s.pubRet(kind, id, consts.TokInfo, ci.Info)
				}
			}
		}
		log.Debug("control applied")
		s.conn.Reply(msg, res, false)
	}
}

// ---- measurement helpers ----

func (s *Service) submitMeasure(devID string, prio bool) bool {
	ent, ok := s.devices[devID]
	if !ok {
		return false
	}
	w := s.workers[ent.busID]
	if w == nil {
		return false
	}
	return w.Submit(halcore.MeasureReq{ID: devID, Adaptor: ent.adaptor, Prio: prio})
}

func (s *Service) bumpDevNext(devID string, from time.Time) {
	period, ok := s.devPeriod[devID]
	if !ok {
		return
	}
	s.devNextDue[devID] = from.Add(mathx.Clamp(period, MinPeriod, MaxPeriod))
}

func (s *Service) earliestDevDue() time.Time {
	var min time.Time
	for _, t := range s.devNextDue {
		if !t.IsZero() && (min.IsZero() || t.Before(min)) {
			min = t
		}
	}
	return min
}

// ---- results ----

func (s *Service) handleResult(r halcore.Result) {
	ent, ok := s.devices[r.ID]
	if !ok {
		return
	}
	now := time.Now()

	if r.Err != nil {
		code := errcode.MapDriverErr(r.Err)
		s.met.ObserveError(r.ID, string(code))
		s.log.WithFields(logrus.Fields{"device": r.ID, "code": code}).WithError(r.Err).Warn("measurement failed")
		for kind, id := range ent.caps {
			s.pubRet(kind, id, consts.TokState, types.CapabilityState{
				Link:  types.LinkDegraded,
				TS:    now,
				Error: string(code),
			})
		}
		return
	}
	for _, rd := range r.Sample {
		id, ok := ent.caps[rd.Kind]
		if !ok {
			continue
		}
		if v, ok := rd.Payload.(types.PressureValue); ok {
			s.met.ObserveOK(r.ID, v.Pa)
		}
		s.conn.Publish(s.conn.NewMessage(capTopic(rd.Kind, id, consts.TokValue), rd.Payload, false))
		s.pubRet(rd.Kind, id, consts.TokState, types.CapabilityState{Link: types.LinkUp, TS: now})
	}
}

// ---- bus helpers & utils ----

func (s *Service) publishState(level, status string, err error) {
	pl := types.HALState{Level: level, Status: status, TS: time.Now()}
	if err != nil {
		pl.Error = err.Error()
	}
	s.conn.Publish(s.conn.NewMessage(topicHALState, pl, true))
}

func (s *Service) replyErr(req *bus.Message, code errcode.Code) {
	if !req.CanReply() {
		return
	}
	if code == "" || code == errcode.OK {
		code = errcode.Error
	}
	s.conn.Reply(req, types.ErrorReply{OK: false, Error: string(code)}, false)
}

func capTopic(kind string, id int, suffix string) bus.Topic {
	return bus.Topic{consts.TokHAL, consts.TokCapability, kind, id, suffix}
}

func (s *Service) pubRet(kind string, id int, suffix string, p any) {
	s.conn.Publish(s.conn.NewMessage(capTopic(kind, id, suffix), p, true))
}

func asInt(t any) (int, bool) {
	switch v := t.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint:
		return int(v), true
	case uint32:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
