// Package main is the entry point for the ledmatrix display daemon.
package main

import (
	"os"

	"github.com/chuckbuilds/ledmatrix/cmd/ledmatrixd/app"
	"github.com/chuckbuilds/ledmatrix/internal/logger"
)

func main() {
	defer logger.Sync()

	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
