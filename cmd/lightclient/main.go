// Package main runs an Altair light client that follows a beacon node through
// its light client REST API.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/MariusVanDerWijden/altair-lc/api"
	"github.com/MariusVanDerWijden/altair-lc/config"
	"github.com/MariusVanDerWijden/altair-lc/core"
	"github.com/MariusVanDerWijden/altair-lc/db/kv"
	"github.com/MariusVanDerWijden/altair-lc/monitoring"
	"github.com/MariusVanDerWijden/altair-lc/syncer"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

var log = logrus.WithField("prefix", "main")

func main() {
	app := cli.App{}
	app.Name = "lightclient"
	app.Usage = "follows the beacon chain with the Altair light client sync protocol"
	app.Flags = appFlags
	app.Before = setupLogging
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

func setupLogging(ctx *cli.Context) error {
	level, err := logrus.ParseLevel(ctx.String(verbosityFlag.Name))
	if err != nil {
		return err
	}
	logrus.SetLevel(level)

	switch format := ctx.String(logFormatFlag.Name); format {
	case "text":
		formatter := new(prefixed.TextFormatter)
		formatter.TimestampFormat = "2006-01-02 15:04:05"
		formatter.FullTimestamp = true
		logrus.SetFormatter(formatter)
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format %s", format)
	}
	return nil
}

func chainConfig(ctx *cli.Context) (*config.Config, error) {
	if path := ctx.String(chainConfigFileFlag.Name); path != "" {
		return config.LoadChainConfigFile(path)
	}
	return config.ConfigForNetwork(ctx.String(networkFlag.Name))
}

func checkpointRoot(ctx *cli.Context) (common.Hash, error) {
	value := ctx.String(checkpointRootFlag.Name)
	if value == "" {
		return common.Hash{}, nil
	}
	root, err := hexutil.Decode(value)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "invalid checkpoint root")
	}
	if len(root) != common.HashLength {
		return common.Hash{}, errors.Errorf("checkpoint root has %d bytes, want %d", len(root), common.HashLength)
	}
	return common.BytesToHash(root), nil
}

func httpHeaders(ctx *cli.Context) (map[string]string, error) {
	headers := make(map[string]string)
	for _, header := range ctx.StringSlice(httpHeaderFlag.Name) {
		parts := strings.SplitN(header, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, errors.Errorf("invalid http header %q, want key=value", header)
		}
		headers[parts[0]] = parts[1]
	}
	return headers, nil
}

func run(ctx *cli.Context) error {
	cfg, err := chainConfig(ctx)
	if err != nil {
		return errors.Wrap(err, "could not load chain config")
	}
	root, err := checkpointRoot(ctx)
	if err != nil {
		return err
	}
	headers, err := httpHeaders(ctx)
	if err != nil {
		return err
	}

	syncCfg := &syncer.Config{
		ChainConfig:    cfg,
		Client:         api.NewBeaconLightAPI(ctx.String(beaconAPIFlag.Name), ctx.Duration(httpTimeoutFlag.Name), headers),
		Verifier:       core.NewBLSVerifier(),
		CheckpointRoot: root,
	}
	if dir := ctx.String(dataDirFlag.Name); dir != "" {
		db, err := kv.NewKVStore(dir)
		if err != nil {
			return errors.Wrap(err, "could not open database")
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.WithError(err).Error("Could not close database")
			}
		}()
		log.WithField("path", db.DatabasePath()).Info("Opened checkpoint database")
		syncCfg.DB = db
	}

	runCtx, cancel := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	service, err := syncer.NewService(runCtx, syncCfg)
	if err != nil {
		return err
	}
	var monitor *monitoring.Service
	if !ctx.Bool(disableMonitoringFlag.Name) {
		addr := fmt.Sprintf("%s:%d", ctx.String(monitoringHostFlag.Name), ctx.Int(monitoringPortFlag.Name))
		monitor = monitoring.NewService(addr, map[string]monitoring.StatusChecker{"syncer": service})
		monitor.Start()
	}

	log.WithFields(logrus.Fields{
		"network":   cfg.ConfigName,
		"beaconAPI": ctx.String(beaconAPIFlag.Name),
	}).Info("Starting light client")
	if err := service.Start(); err != nil {
		stopMonitor(monitor)
		return errors.Wrap(err, "could not start light client")
	}

	<-runCtx.Done()
	log.Info("Got interrupt, shutting down")
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		if err := service.Stop(); err != nil {
			log.WithError(err).Error("Could not stop sync service")
		}
		stopMonitor(monitor)
	}()
	select {
	case <-stopped:
	case <-time.After(ctx.Duration(shutdownTimeoutFlag.Name)):
		log.Warn("Services did not stop in time")
	}
	return nil
}

func stopMonitor(monitor *monitoring.Service) {
	if monitor == nil {
		return
	}
	if err := monitor.Stop(); err != nil {
		log.WithError(err).Error("Could not stop monitoring service")
	}
}
