package main

import (
	"github.com/Carmen-Shannon/oxy-trace/log"

	"github.com/urfave/cli"
)

var logger = log.New("oxytrace")

func setupLogging(ctx *cli.Context) {
	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}

	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}
}

// exitError converts a command failure into an exit code for urfave/cli.
func exitError(err error) error {
	if err == nil {
		return nil
	}
	return cli.NewExitError(err.Error(), 1)
}
