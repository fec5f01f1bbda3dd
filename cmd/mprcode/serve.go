package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/urfave/cli"

	"mprcode-go/bus"
	"mprcode-go/services/config"
	"mprcode-go/services/hal"
	"mprcode-go/services/heartbeat"
	"mprcode-go/types"
)

var serveCommand = cli.Command{
	Name:  "serve",
	Usage: "run the HAL service",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "load device configuration from `FILE` (default: built-in sim config)",
		},
		cli.BoolFlag{
			Name:  "sim",
			Usage: "use simulated I²C buses",
		},
		cli.StringSliceFlag{
			Name:  "i2c",
			Usage: "map a config bus id to a host bus, e.g. i2c0=/dev/i2c-1",
		},
		cli.StringFlag{
			Name:  "metrics-addr",
			Value: ":9102",
			Usage: "prometheus listen address; empty disables",
		},
	},
	Action: serve,
}

func serve(c *cli.Context) error {
	bindString(c, "config")
	bindBool(c, "sim")
	bindStringSlice(c, "i2c")
	bindString(c, "metrics-addr")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	buses, closeFn, err := openBuses()
	if err != nil {
		return err
	}
	defer closeFn()

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())
	if addr := viper.GetString("metrics-addr"); addr != "" {
		srv := &http.Server{Addr: addr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("metrics server")
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
		log.WithField("addr", addr).Info("metrics listening")
	}

	b := bus.NewBus(16)
	monitor(b.NewConnection("monitor"))
	if err := (&heartbeat.Service{}).Start(ctx, b.NewConnection("heartbeat")); err != nil {
		return err
	}

	src := config.FromEmbedded("sim")
	if path := viper.GetString("config"); path != "" {
		src = config.FromFile(path)
	}
	if err := config.NewConfigService(src, nil).Publish(b.NewConnection("config")); err != nil {
		return err
	}

	log.Info("hal starting")
	return hal.Run(ctx, b.NewConnection("hal"), hal.Options{
		Buses:      buses,
		Log:        log.NewEntry(log.StandardLogger()),
		Registerer: reg,
	})
}

func openBuses() (hal.I2CBusFactory, func() error, error) {
	mapping := viper.GetStringSlice("i2c")
	if viper.GetBool("sim") || len(mapping) == 0 {
		log.Info("using simulated i2c buses")
		return hal.SimBuses(), func() error { return nil }, nil
	}
	names := make(map[string]string, len(mapping))
	for _, m := range mapping {
		id, name, ok := strings.Cut(m, "=")
		if !ok || id == "" {
			return nil, nil, fmt.Errorf("i2c: %q is not id=name", m)
		}
		names[id] = name
	}
	return hal.OpenBuses(names)
}

// monitor logs HAL state changes and readings.
func monitor(conn *bus.Connection) {
	sub := conn.Subscribe(bus.T("hal", "#"))
	go func() {
		for m := range sub.Channel() {
			entry := log.WithField("topic", m.Topic.String())
			switch p := m.Payload.(type) {
			case types.PressureValue:
				entry.WithFields(log.Fields{"value": p.Value, "unit": p.Unit, "pa": p.Pa}).Info("reading")
			case types.CapabilityState:
				if p.Link != types.LinkUp {
					entry.WithFields(log.Fields{"link": p.Link, "error": p.Error}).Warn("capability state")
				}
			case types.HALState:
				entry.WithFields(log.Fields{"level": p.Level, "status": p.Status}).Info("hal state")
			default:
				entry.Debug("message")
			}
		}
	}()
}
