package main

import (
	"fmt"
	"os"

	"github.com/forgecoind/forgecoind/infrastructure/logger"
	"github.com/forgecoind/forgecoind/mining"
)

var (
	backendLog = logger.NewBackend()
	log        = backendLog.Logger("BASM")
)

func initLog(logFile, errLogFile string) {
	err := backendLog.AddLogFile(logFile, logger.LevelTrace)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error adding log file %s: %s\n", logFile, err)
		os.Exit(1)
	}
	err = backendLog.AddLogFile(errLogFile, logger.LevelWarn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error adding log file %s: %s\n", errLogFile, err)
		os.Exit(1)
	}
	if err := backendLog.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error starting log backend: %s\n", err)
		os.Exit(1)
	}
	mining.UseLogger(backendLog.Logger("MINR"))
}
