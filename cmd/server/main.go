// Command server runs the custodial reward-pool penalty service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	cli "gopkg.in/urfave/cli.v1"

	"stakepool-custody/internal/accounts"
	"stakepool-custody/internal/api"
	"stakepool-custody/internal/authz"
	"stakepool-custody/internal/domain"
	"stakepool-custody/internal/penalty"
	"stakepool-custody/internal/rewardpool"
	"stakepool-custody/internal/signer"
	"stakepool-custody/internal/solana"
	"stakepool-custody/internal/storage"
	"stakepool-custody/internal/storage/memory"
	"stakepool-custody/internal/storage/migrations"
	pgstore "stakepool-custody/internal/storage/postgres"
)

const shutdownTimeout = 30 * time.Second

var version = "dev"

func main() {
	loadEnvFile(".env")

	app := cli.NewApp()
	app.Name = "stakepool-custody"
	app.Usage = "custodial reward-pool penalty service"
	app.Version = version
	app.Flags = []cli.Flag{
		listenAddrFlag,
		poolsFileFlag,
		derivationTagFileFlag,
		programIDFlag,
		postgresDSNFlag,
		clickhouseDSNFlag,
		useMemoryFlag,
		rpcEndpointFlag,
		allowUnsignedFlag,
		rateLimitFlag,
		rateBurstFlag,
		requestTimeoutFlag,
		logLevelFlag,
		logJSONFlag,
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	logger, err := newLogger(c.String(logLevelFlag.Name), c.Bool(logJSONFlag.Name))
	if err != nil {
		return err
	}
	log := logrus.NewEntry(logger).WithField("component", "server")

	for _, f := range []cli.StringFlag{poolsFileFlag, derivationTagFileFlag, programIDFlag} {
		if c.String(f.Name) == "" {
			return fmt.Errorf("--%s is required", f.Name)
		}
	}

	tag, err := signer.LoadTagFile(c.String(derivationTagFileFlag.Name))
	if err != nil {
		return err
	}
	svc, err := signer.New(tag, c.String(programIDFlag.Name))
	if err != nil {
		return fmt.Errorf("signer: %w", err)
	}

	fx, err := loadFixture(c.String(poolsFileFlag.Name))
	if err != nil {
		return err
	}
	pools, err := fx.domainPools(time.Now().UnixMilli())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStores, err := openStores(ctx, c, log)
	if err != nil {
		return err
	}
	defer closeStores()

	if err := seedPools(ctx, st.pools, pools, log); err != nil {
		return err
	}

	if endpoint := c.String(rpcEndpointFlag.Name); endpoint != "" {
		verifier := accounts.NewVaultVerifier(solana.NewHTTPClient(endpoint), svc)
		if err := verifyVaults(ctx, verifier, pools, log); err != nil {
			return err
		}
	}

	ledger, err := openLedger(fx, pools, svc)
	if err != nil {
		return err
	}

	model := accounts.NewModel(st.pools)
	hub := api.NewHub(log)
	executor := penalty.NewExecutor(model, rewardpool.NewMachine(model), svc, ledger,
		penalty.WithReceiptStore(st.receipts),
		penalty.WithLogger(log),
	)
	engine := penalty.NewEngine(authz.NewValidator(model), executor,
		penalty.WithEventStore(st.events),
		penalty.WithNotifier(hub),
		penalty.WithEngineLogger(log),
	)
	server := api.NewServer(apiConfig(c), engine, model, st.receipts, hub, log)

	httpServer := &http.Server{
		Addr:              c.String(listenAddrFlag.Name),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithFields(logrus.Fields{
			"addr":  httpServer.Addr,
			"pools": len(pools),
		}).Info("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("shutdown complete")
	return nil
}

func apiConfig(c *cli.Context) api.Config {
	cfg := api.DefaultConfig()
	cfg.RequireSignatures = !c.Bool(allowUnsignedFlag.Name)
	cfg.RateLimit = rate.Limit(c.Float64(rateLimitFlag.Name))
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = rate.Inf
	}
	cfg.RateBurst = c.Int(rateBurstFlag.Name)
	cfg.RequestTimeout = c.Duration(requestTimeoutFlag.Name)
	return cfg
}

func newLogger(level string, json bool) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", logLevelFlag.Name, err)
	}
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetLevel(lvl)
	if json {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger, nil
}

type stores struct {
	pools    storage.PoolStore
	receipts storage.ReceiptStore
	events   storage.PenaltyEventStore
}

func openStores(ctx context.Context, c *cli.Context, log *logrus.Entry) (*stores, func(), error) {
	if c.Bool(useMemoryFlag.Name) {
		log.Warn("using in-memory storage, state is lost on exit")
		return &stores{
			pools:    memory.NewPoolStore(),
			receipts: memory.NewReceiptStore(),
			events:   memory.NewPenaltyEventStore(),
		}, func() {}, nil
	}

	pgDSN, chDSN := c.String(postgresDSNFlag.Name), c.String(clickhouseDSNFlag.Name)
	if pgDSN == "" || chDSN == "" {
		return nil, nil, fmt.Errorf("--%s and --%s are required (use --%s for in-memory storage)",
			postgresDSNFlag.Name, clickhouseDSNFlag.Name, useMemoryFlag.Name)
	}

	pool, err := pgstore.NewPool(ctx, pgDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool, migrations.WithLogger(log)); err != nil {
		pool.Close()
		return nil, nil, err
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, chDSN, migrations.WithLogger(log))
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	return newPersistentStores(pool, conn), func() {
		conn.Close()
		pool.Close()
	}, nil
}

func verifyVaults(ctx context.Context, verifier *accounts.VaultVerifier, pools []*domain.Pool, log *logrus.Entry) error {
	for _, p := range pools {
		if err := verifier.Verify(ctx, p); err != nil {
			return fmt.Errorf("verify vault of pool %s: %w", p.Identity, err)
		}
		log.WithField("pool", p.Identity).Info("vault custody verified")
	}
	return nil
}
