// Command stationd is STATION's main process: it serves the api/httpapi
// JSON-RPC-style surface over HTTP, runs the cooperative scheduler's two
// periodic jobs, and hosts an in-process upgrader.Service so trigger_upgrade
// can stop/replace/restart this very binary. Structure (flag parsing,
// config load, signal-driven graceful shutdown) is adapted from the
// teacher's cmd/gateway/main.go.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/station-labs/station"
	"github.com/station-labs/station/api/httpapi"
	"github.com/station-labs/station/api/upgraderapi"
	"github.com/station-labs/station/authz"
	"github.com/station-labs/station/config"
	"github.com/station-labs/station/factory"
	"github.com/station-labs/station/model"
	"github.com/station-labs/station/observability"
	"github.com/station-labs/station/observability/logging"
	"github.com/station-labs/station/policy"
	"github.com/station-labs/station/repository"
	"github.com/station-labs/station/scheduler"
	"github.com/station-labs/station/storage"
	"github.com/station-labs/station/store"
	"github.com/station-labs/station/stationerr"
	"github.com/station-labs/station/upgrader"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "station.toml", "path to station configuration")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("STATION_ENV"))
	logger := logging.Setup("stationd", env)
	station.SetLogger(logger)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Error("create data dir", "error", err)
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "db"))
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	deps := wireRepositories(db)

	limiter := authz.NewLimiter()
	engine := authz.NewEngine(deps.permissions, deps.users, limiter, func() bool { return true })

	selfPrincipal, err := resolveSelfPrincipal(cfg)
	if err != nil {
		logger.Error("resolve station principal", "error", err)
		os.Exit(1)
	}

	executablePath, _ := os.Executable()
	httpServer := &http.Server{
		Addr:        cfg.ListenAddress,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	targets := map[model.SystemUpgradeTarget]upgrader.Target{
		model.SystemUpgradeTargetStation: &upgrader.StationTarget{
			DB:         db,
			BinaryPath: executablePath,
			Server:     httpServer,
			StartServer: func(ctx context.Context) error {
				listener, err := net.Listen("tcp", cfg.ListenAddress)
				if err != nil {
					return err
				}
				go func() {
					if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
						logger.Error("serve after restart", "error", err)
					}
				}()
				return nil
			},
		},
	}
	upgraderSvc := upgrader.NewService(logger, targets, controllerPrincipals(cfg))

	var upgraderRemote *upgraderapi.Client
	if cfg.Upgrader.ListenAddress != "" {
		dialCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		upgraderRemote, err = upgraderapi.Dial(dialCtx, cfg.Upgrader.ListenAddress, cfg.Upgrader, filepath.Dir(cfgPath), os.LookupEnv)
		cancel()
		if err != nil {
			logger.Warn("dial remote upgraderd, self-upgrade target unavailable", "error", err)
		} else {
			defer upgraderRemote.Close()
		}
	}

	resolver := &factory.RepositoryResolver{
		Users:          deps.users,
		Groups:         deps.groups,
		Accounts:       deps.accounts,
		Assets:         deps.assets,
		AddressBook:    deps.addressBook,
		Policies:       deps.policies,
		NamedRules:     deps.namedRules,
		Permissions:    deps.permissions,
		Upgrader:       upgraderSvc,
		UpgraderRemote: upgraderRemote,
		SystemCaller:   selfPrincipal,
	}
	policyResolver := &policy.RepositoryResolver{
		Users:      deps.users,
		Groups:     deps.groups,
		NamedRules: deps.namedRules,
		Addresses:  deps.addressBook,
	}

	if err := bootstrap(cfg, deps, upgraderSvc); err != nil {
		logger.Error("bootstrap system install", "error", err)
		os.Exit(1)
	}

	accessor := store.New()
	registry := factory.NewStationRegistry()

	httpCfg := httpapi.Config{
		Requests:       deps.requests,
		Users:          deps.users,
		Groups:         deps.groups,
		Accounts:       deps.accounts,
		Assets:         deps.assets,
		AddressBook:    deps.addressBook,
		Policies:       deps.policies,
		NamedRules:     deps.namedRules,
		Permissions:    deps.permissions,
		Notifications:  deps.notifications,
		Authz:          engine,
		Factories:      registry,
		Resolver:       resolver,
		PolicyResolver: policyResolver,
		Accessor:       accessor,
		Principal:      httpapi.PrincipalConfig{HMACSecret: cfg.Auth.HMACSecret},
		CORS:           httpapi.CORSConfig{AllowedOrigins: []string{"*"}},
		Logger:         logger,
	}
	server := httpapi.New(httpCfg)
	httpServer.Handler = server.Router()

	sched := scheduler.New(deps.requests, registry, resolver)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go runScheduler(ctx, sched, accessor, cfg.Scheduler, logger)

	listener, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		logger.Error("listen", "error", err)
		os.Exit(1)
	}
	go func() {
		logger.Info("stationd listening", "addr", listener.Addr().String())
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Error("serve", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", "error", err)
	}
}

// stationDeps collects every repository cmd/stationd wires, kept as one
// struct so the constructor list below stays a single block rather than
// ten separate local variables threaded through two call sites.
type stationDeps struct {
	users         *repository.UserRepository
	groups        *repository.UserGroupRepository
	accounts      *repository.AccountRepository
	assets        *repository.AssetRepository
	addressBook   *repository.AddressBookRepository
	policies      *repository.PolicyRepository
	namedRules    *repository.NamedRuleRepository
	permissions   *repository.PermissionRepository
	notifications *repository.NotificationRepository
	requests      *repository.RequestRepository
}

func wireRepositories(db storage.Database) stationDeps {
	return stationDeps{
		users:         repository.NewUserRepository(db),
		groups:        repository.NewUserGroupRepository(db),
		accounts:      repository.NewAccountRepository(db),
		assets:        repository.NewAssetRepository(db),
		addressBook:   repository.NewAddressBookRepository(db),
		policies:      repository.NewPolicyRepository(db),
		namedRules:    repository.NewNamedRuleRepository(db),
		permissions:   repository.NewPermissionRepository(db),
		notifications: repository.NewNotificationRepository(db),
		requests:      repository.NewRequestRepository(db),
	}
}

func resolveSelfPrincipal(cfg *config.Config) (model.Principal, error) {
	if len(cfg.SystemInit.AdminUsers) == 0 || len(cfg.SystemInit.AdminUsers[0].Identities) == 0 {
		return model.Principal{0x01}, nil
	}
	return model.ParsePrincipalHex(cfg.SystemInit.AdminUsers[0].Identities[0])
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

// runScheduler drives scheduler.Scheduler's two periodic jobs on cfg's
// configured period, serializing every tick through accessor so scheduler
// batches never interleave with an in-flight api/httpapi mutation.
func runScheduler(ctx context.Context, sched *scheduler.Scheduler, accessor *store.Accessor, cfg config.Scheduler, logger *slog.Logger) {
	period := time.Duration(cfg.PeriodMillis) * time.Millisecond
	if period <= 0 {
		period = 500 * time.Millisecond
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			start := now
			var drained bool
			err := accessor.Do(func() error {
				var execErr error
				drained, execErr = sched.ExecuteScheduledRequests(ctx, model.NextTime())
				if execErr != nil {
					return execErr
				}
				return sched.Expire(model.NextTime())
			})
			observability.Scheduler().RecordBatch(time.Since(start), drained)
			if err != nil {
				logger.Warn("scheduler batch failed", "error", err)
			}
		}
	}
}

// bootstrap decodes cfg.SystemInit once, per SPEC_FULL.md §6.5: on a fresh
// station (no users registered yet) it creates the configured admin
// users and seeds the upgrader's disaster-recovery committee. A populated
// station is left untouched — this is strictly a first-run operation, not
// a reconciliation loop.
func bootstrap(cfg *config.Config, deps stationDeps, upgraderSvc *upgrader.Service) error {
	existing, err := deps.users.All()
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	for _, admin := range cfg.SystemInit.AdminUsers {
		identities := make(map[string]model.Principal, len(admin.Identities))
		for _, hex := range admin.Identities {
			p, err := model.ParsePrincipalHex(hex)
			if err != nil {
				return stationerr.Validation("bootstrap admin %q: %v", admin.Name, err)
			}
			identities[p.String()] = p
		}
		u := &model.User{
			ID:         model.NewUUID(),
			Name:       admin.Name,
			Identities: identities,
			Groups:     map[model.UUID]struct{}{model.AdminGroupID: {}},
			Status:     model.UserStatusActive,
		}
		if err := deps.users.Put(u); err != nil {
			return err
		}
	}

	if len(cfg.SystemInit.DisasterRecoveryCommittee) == 0 {
		return nil
	}
	members := make([]model.DisasterRecoveryMember, 0, len(cfg.SystemInit.DisasterRecoveryCommittee))
	for _, m := range cfg.SystemInit.DisasterRecoveryCommittee {
		identities := make([]model.Principal, 0, len(m.Identities))
		for _, hex := range m.Identities {
			p, err := model.ParsePrincipalHex(hex)
			if err != nil {
				return stationerr.Validation("bootstrap disaster recovery member %q: %v", m.Name, err)
			}
			identities = append(identities, p)
		}
		members = append(members, model.DisasterRecoveryMember{ID: model.NewUUID(), Name: m.Name, Identities: identities})
	}
	committee := model.DisasterRecoveryCommittee{Quorum: cfg.SystemInit.DisasterRecoveryQuorum, Users: members}
	selfPrincipal, err := resolveSelfPrincipal(cfg)
	if err != nil {
		return err
	}
	return upgraderSvc.SetDisasterRecoveryCommittee(selfPrincipal, selfPrincipal, committee)
}
