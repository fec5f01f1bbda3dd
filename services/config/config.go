package config

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"mprcode-go/bus"
	"mprcode-go/types"
)

const (
	serviceName  = "config"
	configPrefix = "config"
	halKey       = "hal"
)

// File is the on-disk configuration. The "hal" section is typed; any other
// top-level section is published as decoded YAML under config/<key>.
type File struct {
	HAL    types.HALConfig `yaml:"hal"`
	Extras map[string]any  `yaml:",inline"`
}

// Parse decodes and validates a YAML document.
func Parse(raw []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	seen := map[string]bool{}
	for i, d := range f.HAL.Devices {
		switch {
		case d.ID == "":
			return nil, fmt.Errorf("config: hal device %d: missing id", i)
		case d.Type == "":
			return nil, fmt.Errorf("config: hal device %q: missing type", d.ID)
		case seen[d.ID]:
			return nil, fmt.Errorf("config: hal device %q: duplicate id", d.ID)
		}
		seen[d.ID] = true
	}
	return &f, nil
}

// Source yields a raw YAML document.
type Source func() ([]byte, error)

// FromFile reads the document at path on every publish.
func FromFile(path string) Source {
	return func() ([]byte, error) { return os.ReadFile(path) }
}

// FromEmbedded resolves a built-in document by name.
func FromEmbedded(name string) Source {
	return func() ([]byte, error) {
		b, ok := EmbeddedConfigLookup(name)
		if !ok || len(b) == 0 {
			return nil, errors.New("config: no embedded config " + name)
		}
		return b, nil
	}
}

// EmbeddedConfigLookup allows overriding how built-in configs are resolved.
var EmbeddedConfigLookup = func(name string) ([]byte, bool) {
	b, ok := embeddedConfigs[name]
	return b, ok
}

// -----------------------------------------------------------------------------
// Config Service
// -----------------------------------------------------------------------------

type ConfigService struct {
	Name string
	src  Source
	log  *logrus.Entry
}

func NewConfigService(src Source, log *logrus.Entry) *ConfigService {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &ConfigService{Name: serviceName, src: src, log: log.WithField("svc", serviceName)}
}

// Publish loads the source and publishes every section as a retained message.
func (s *ConfigService) Publish(conn *bus.Connection) error {
	raw, err := s.src()
	if err != nil {
		return err
	}
	f, err := Parse(raw)
	if err != nil {
		return err
	}
	for k, v := range f.Extras {
		conn.Publish(conn.NewMessage(bus.T(configPrefix, k), v, true))
	}
	conn.Publish(conn.NewMessage(bus.T(configPrefix, halKey), f.HAL, true))
	s.log.WithField("devices", len(f.HAL.Devices)).Info("config published")
	return nil
}

// Start publishes the config in a goroutine, logging any failure.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if ctx.Err() != nil {
			return
		}
		if err := s.Publish(conn); err != nil {
			s.log.WithError(err).Error("publish config")
		}
	}()
}
