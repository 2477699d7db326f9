package main

import (
	"time"

	"github.com/MariusVanDerWijden/altair-lc/api"
	"github.com/urfave/cli/v2"
)

var (
	beaconAPIFlag = &cli.StringFlag{
		Name:  "beacon-api",
		Usage: "URL of a beacon node serving the light client REST API",
		Value: "http://localhost:5052",
	}
	checkpointRootFlag = &cli.StringFlag{
		Name:  "checkpoint-root",
		Usage: "Trusted block root to bootstrap from, 0x prefixed hex",
	}
	networkFlag = &cli.StringFlag{
		Name:  "network",
		Usage: "Chain preset to follow: mainnet or minimal",
		Value: "mainnet",
	}
	chainConfigFileFlag = &cli.StringFlag{
		Name:  "chain-config-file",
		Usage: "YAML chain config overriding the network preset",
	}
	dataDirFlag = &cli.StringFlag{
		Name:  "datadir",
		Usage: "Directory for the checkpoint database, nothing is persisted when empty",
	}
	httpTimeoutFlag = &cli.DurationFlag{
		Name:  "http-timeout",
		Usage: "Timeout of requests to the beacon node",
		Value: api.DefaultTimeout,
	}
	httpHeaderFlag = &cli.StringSliceFlag{
		Name:  "http-header",
		Usage: "Extra header sent to the beacon node as key=value, may be repeated",
	}
	monitoringHostFlag = &cli.StringFlag{
		Name:  "monitoring-host",
		Usage: "Host used for the metrics and health endpoints",
		Value: "127.0.0.1",
	}
	monitoringPortFlag = &cli.IntFlag{
		Name:  "monitoring-port",
		Usage: "Port used for the metrics and health endpoints",
		Value: 8080,
	}
	disableMonitoringFlag = &cli.BoolFlag{
		Name:  "disable-monitoring",
		Usage: "Do not serve metrics and health endpoints",
	}
	verbosityFlag = &cli.StringFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity (trace, debug, info, warn, error, fatal, panic)",
		Value: "info",
	}
	logFormatFlag = &cli.StringFlag{
		Name:  "log-format",
		Usage: "Log format to use: text or json",
		Value: "text",
	}
	shutdownTimeoutFlag = &cli.DurationFlag{
		Name:  "shutdown-timeout",
		Usage: "Time to wait for services to stop",
		Value: 5 * time.Second,
	}
)

var appFlags = []cli.Flag{
	beaconAPIFlag,
	checkpointRootFlag,
	networkFlag,
	chainConfigFileFlag,
	dataDirFlag,
	httpTimeoutFlag,
	httpHeaderFlag,
	monitoringHostFlag,
	monitoringPortFlag,
	disableMonitoringFlag,
	verbosityFlag,
	logFormatFlag,
	shutdownTimeoutFlag,
}
