// Command upgraderd is the Upgrader Protocol's standalone process
// (spec.md §4.6, SPEC_FULL.md §6.1): it runs upgrader.Service against a
// station process it supervises over OS pid/exec control, plus its own
// binary under model.SystemUpgradeTargetUpgrader, and exposes
// trigger_upgrade / request_disaster_recovery /
// set_disaster_recovery_committee / snapshot CRUD over the
// station.upgrader.v1.Upgrader gRPC service (api/upgraderapi), secured by
// the shared-secret-or-mTLS policy configured under [Upgrader] in the same
// config file stationd reads. Structure mirrors the teacher's own
// services/governd/main.go: load config, dial/build the server, signal-
// driven graceful shutdown.
package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/station-labs/station/api/upgraderapi"
	"github.com/station-labs/station/config"
	"github.com/station-labs/station/model"
	"github.com/station-labs/station/observability/logging"
	"github.com/station-labs/station/upgrader"
)

func main() {
	var cfgPath string
	var stationBinary string
	var stationArgs string
	var pidFile string
	var selfBinary string
	flag.StringVar(&cfgPath, "config", "upgraderd.toml", "path to configuration shared with stationd")
	flag.StringVar(&stationBinary, "station-binary", "", "path to the managed station binary")
	flag.StringVar(&stationArgs, "station-args", "", "space-separated arguments passed to the station binary on start")
	flag.StringVar(&pidFile, "pidfile", "", "path to the managed station's pidfile")
	flag.StringVar(&selfBinary, "self-binary", "", "path to this upgraderd binary, for self-upgrade re-exec; defaults to the running executable")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("STATION_ENV"))
	logger := logging.Setup("upgraderd", env)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	baseDir := configDir(cfgPath)
	if _, err := cfg.Upgrader.ResolveSharedSecret(baseDir, os.LookupEnv); err != nil {
		logger.Error("resolve shared secret", "error", err)
		os.Exit(1)
	}

	if stationBinary == "" {
		logger.Error("upgraderd requires -station-binary")
		os.Exit(1)
	}
	if pidFile == "" {
		pidFile = stationBinary + ".pid"
	}
	if selfBinary == "" {
		if exe, err := os.Executable(); err == nil {
			selfBinary = exe
		}
	}

	station := &upgrader.ProcessTarget{
		BinaryPath:  stationBinary,
		Args:        splitArgs(stationArgs),
		PIDFile:     pidFile,
		StopTimeout: 10 * time.Second,
	}
	self := &upgrader.SelfTarget{BinaryPath: selfBinary}
	targets := map[model.SystemUpgradeTarget]upgrader.Target{
		model.SystemUpgradeTargetStation:  station,
		model.SystemUpgradeTargetUpgrader: self,
	}
	svc := upgrader.NewService(logger, targets, controllerPrincipals(cfg))

	server, err := upgraderapi.New(upgraderapi.Config{
		Service:  svc,
		Security: &cfg.Upgrader,
		BaseDir:  baseDir,
		Lookup:   os.LookupEnv,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("build upgrader server", "error", err)
		os.Exit(1)
	}

	addr := cfg.Upgrader.ListenAddress
	if addr == "" {
		addr = ":9443"
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("listen", "error", err)
		os.Exit(1)
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("upgraderd listening", "addr", listener.Addr().String())
		serverErr <- server.Serve(listener)
	}()

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		stopped := make(chan struct{})
		go func() {
			server.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-shutdownCtx.Done():
			logger.Info("forcing shutdown")
			server.Stop()
		}
	case err := <-serverErr:
		if err != nil {
			logger.Error("serve", "error", err)
			os.Exit(1)
		}
	}
}

func configDir(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return ""
	}
	return path[:idx]
}

func splitArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Fields(s)
}

func controllerPrincipals(cfg *config.Config) []model.Principal {
	var out []model.Principal
	for _, member := range cfg.SystemInit.DisasterRecoveryCommittee {
		for _, identity := range member.Identities {
			if p, err := model.ParsePrincipalHex(identity); err == nil {
				out = append(out, p)
			}
		}
	}
	return out
}
