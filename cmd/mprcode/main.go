package main

import (
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/urfave/cli"
)

const envPrefix = "MPRCODE"

func main() {
	app := cli.NewApp()

	app.Name = "mprcode"
	app.Version = "0.1.0"
	app.Usage = "MPR pressure sensor reader and HAL service"

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "log-level",
			Value: "info",
			Usage: "log level (trace, debug, info, warn, error)",
		},
	}
	app.Before = func(c *cli.Context) error {
		viper.SetEnvPrefix(envPrefix)
		viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
		viper.AutomaticEnv()
		bindString(c, "log-level")

		log.SetFormatter(&log.TextFormatter{DisableColors: true, FullTimestamp: true})
		lvl, err := log.ParseLevel(viper.GetString("log-level"))
		if err != nil {
			return err
		}
		log.SetLevel(lvl)
		return nil
	}
	app.Commands = []cli.Command{readCommand, serveCommand}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("mprcode")
	}
}

// bindString feeds a flag into viper. An explicit flag beats the environment,
// which beats the flag default.
func bindString(c *cli.Context, name string) {
	if c.IsSet(name) {
		viper.Set(name, c.String(name))
		return
	}
	viper.SetDefault(name, c.String(name))
}

func bindBool(c *cli.Context, name string) {
	if c.IsSet(name) {
		viper.Set(name, c.Bool(name))
		return
	}
	viper.SetDefault(name, c.Bool(name))
}

func bindStringSlice(c *cli.Context, name string) {
	if c.IsSet(name) {
		viper.Set(name, c.StringSlice(name))
		return
	}
	viper.SetDefault(name, c.StringSlice(name))
}
