package main

import (
	"time"

	cli "gopkg.in/urfave/cli.v1"
)

var (
	listenAddrFlag = cli.StringFlag{
		Name:   "listen-addr",
		Value:  ":8080",
		Usage:  "HTTP listening address (API, stream and /metrics)",
		EnvVar: "LISTEN_ADDR",
	}
	poolsFileFlag = cli.StringFlag{
		Name:   "pools-file",
		Usage:  "YAML fixture with pools and ledger accounts",
		EnvVar: "POOLS_FILE",
	}
	derivationTagFileFlag = cli.StringFlag{
		Name:   "derivation-tag-file",
		Usage:  "file holding the hex-encoded private derivation tag",
		EnvVar: "SIGNER_DERIVATION_TAG_FILE",
	}
	programIDFlag = cli.StringFlag{
		Name:   "program-id",
		Usage:  "program address used for authority derivation",
		EnvVar: "PROGRAM_ID",
	}
	postgresDSNFlag = cli.StringFlag{
		Name:   "postgres-dsn",
		Usage:  "PostgreSQL connection string",
		EnvVar: "POSTGRES_DSN",
	}
	clickhouseDSNFlag = cli.StringFlag{
		Name:   "clickhouse-dsn",
		Usage:  "ClickHouse connection string",
		EnvVar: "CLICKHOUSE_DSN",
	}
	useMemoryFlag = cli.BoolFlag{
		Name:   "use-memory",
		Usage:  "use in-memory storage instead of PostgreSQL and ClickHouse",
		EnvVar: "USE_MEMORY",
	}
	rpcEndpointFlag = cli.StringFlag{
		Name:   "rpc-endpoint",
		Usage:  "Solana RPC HTTP endpoint; when set, vault custody is verified on startup",
		EnvVar: "SOLANA_RPC_ENDPOINT",
	}
	allowUnsignedFlag = cli.BoolFlag{
		Name:   "allow-unsigned",
		Usage:  "accept penalty requests without a caller signature (development only)",
		EnvVar: "ALLOW_UNSIGNED",
		Hidden: true,
	}
	rateLimitFlag = cli.Float64Flag{
		Name:   "rate-limit",
		Value:  10,
		Usage:  "requests per second per client address and per caller (0 disables)",
		EnvVar: "RATE_LIMIT",
	}
	rateBurstFlag = cli.IntFlag{
		Name:   "rate-burst",
		Value:  20,
		Usage:  "rate limiter burst size",
		EnvVar: "RATE_BURST",
	}
	requestTimeoutFlag = cli.DurationFlag{
		Name:   "request-timeout",
		Value:  30 * time.Second,
		Usage:  "upper bound for a single penalty request",
		EnvVar: "REQUEST_TIMEOUT",
	}
	logLevelFlag = cli.StringFlag{
		Name:   "log-level",
		Value:  "info",
		Usage:  "log level (trace|debug|info|warn|error)",
		EnvVar: "LOG_LEVEL",
	}
	logJSONFlag = cli.BoolFlag{
		Name:   "log-json",
		Usage:  "emit logs as JSON",
		EnvVar: "LOG_JSON",
	}
)
