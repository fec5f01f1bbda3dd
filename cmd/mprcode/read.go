package main

import (
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/urfave/cli"
	"tinygo.org/x/drivers"

	"mprcode-go/drivers/mpr"
	"mprcode-go/services/hal"
)

var readCommand = cli.Command{
	Name:  "read",
	Usage: "take one pressure reading",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "bus, b",
			Value: "sim",
			Usage: "host I²C bus name (e.g. /dev/i2c-1), or sim",
		},
		cli.StringFlag{
			Name:  "addr, a",
			Value: "0x18",
			Usage: "sensor address",
		},
		cli.StringFlag{
			Name:  "unit, u",
			Value: "psi",
			Usage: "psi, pa, kpa, torr, inhg, atm or bar",
		},
	},
	Action: read,
}

func read(c *cli.Context) error {
	for _, name := range []string{"bus", "addr", "unit"} {
		bindString(c, name)
	}

	n, err := strconv.ParseUint(viper.GetString("addr"), 0, 16)
	if err != nil {
		return fmt.Errorf("addr: %w", err)
	}
	addr, err := mpr.ParseAddress(uint16(n))
	if err != nil {
		return err
	}
	unit, err := mpr.ParseUnit(viper.GetString("unit"))
	if err != nil {
		return err
	}

	i2c, closeFn, err := openBus(viper.GetString("bus"))
	if err != nil {
		return err
	}
	defer closeFn()

	dev := mpr.New(i2c, addr, nil)
	v, err := dev.GetPressure(unit)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"bus": viper.GetString("bus"), "addr": addr}).Debug("read complete")
	fmt.Printf("%.4f %s\n", v, unit)
	return nil
}

func openBus(name string) (drivers.I2C, func() error, error) {
	if name == "sim" {
		return hal.SimBus(), func() error { return nil }, nil
	}
	f, closeFn, err := hal.OpenBuses(map[string]string{"cli": name})
	if err != nil {
		return nil, nil, err
	}
	i2c, _ := f.ByID("cli")
	return i2c, closeFn, nil
}
