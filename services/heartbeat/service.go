package heartbeat

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"mprcode-go/bus"
)

var (
	topicConfigHeartbeat = bus.Topic{"config", "heartbeat"}
	topicHeartbeat       = bus.Topic{"sys", "heartbeat"}
)

const defaultInterval = 10 * time.Second

// Beat is published (retained) on sys/heartbeat every interval.
type Beat struct {
	Seq    uint64        `json:"seq"`
	Uptime time.Duration `json:"uptime"`
	TS     time.Time     `json:"ts"`
}

type Service struct {
	Log *logrus.Entry
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	log := s.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("svc", "heartbeat")

	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)

	start := time.Now()
	var seq uint64
	tick := time.NewTicker(defaultInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("heartbeat stopping")
			return
		case t := <-tick.C:
			seq++
			conn.Publish(conn.NewMessage(topicHeartbeat, Beat{Seq: seq, Uptime: t.Sub(start), TS: t}, true))
			log.WithField("seq", seq).Debug("heartbeat")
		case msg := <-cfgSub.Channel():
			if iv, ok := interval(msg.Payload); ok {
				tick.Reset(iv)
				log.WithField("interval", iv).Info("heartbeat interval set")
			} else {
				log.WithField("payload", msg.Payload).Warn("ignoring heartbeat config")
			}
		}
	}
}

// interval reads {"interval": seconds} from decoded YAML or JSON.
func interval(p any) (time.Duration, bool) {
	m, ok := p.(map[string]any)
	if !ok {
		return 0, false
	}
	var secs float64
	switch v := m["interval"].(type) {
	case int:
		secs = float64(v)
	case float64:
		secs = v
	default:
		return 0, false
	}
	if secs <= 0 {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}
