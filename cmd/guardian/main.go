// Package main is the entry point for the guardian security engine.
package main

import (
	"os"

	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/guardian/cmd/guardian/app"
)

func main() {
	if err := app.NewCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
