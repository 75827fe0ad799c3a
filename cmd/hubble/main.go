// Command hubble runs the rollup dispute core as a standalone process: it
// wires the batch ledger to its in-memory collaborators, funds the
// coordinator, and waits for a shutdown signal.
//
// Usage:
//
//	hubble [flags]
//
// Flags:
//
//	--coordinator     Coordinator address, hex (default 0x...0c0de)
//	--genesis         Genesis state root, hex (default zero)
//	--stake           Bond required per batch (default 1000000)
//	--maxtxs          Transaction cap per batch (default 1024)
//	--finality        Finality delay in blocks (default 40320)
//	--minbudget       Minimum rollback work budget (default 1)
//	--registry.depth  Account registry depth (default 20)
//	--funds           Initial coordinator balance (default 100 stakes)
//	--verbosity       Log level 0-3 (0=error, 3=debug; default 2)
//	--version         Print version and exit
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/holiman/uint256"

	"github.com/Hubble-Project/hubble/core/types"
	"github.com/Hubble-Project/hubble/crypto"
	"github.com/Hubble-Project/hubble/deposits"
	"github.com/Hubble-Project/hubble/fraudproof"
	"github.com/Hubble-Project/hubble/governance"
	"github.com/Hubble-Project/hubble/log"
	"github.com/Hubble-Project/hubble/registry"
	"github.com/Hubble-Project/hubble/rollup"
	"github.com/Hubble-Project/hubble/treasury"
)

// Build-time version info, overridable with ldflags:
//
//	go build -ldflags "-X main.version=v0.2.0 -X main.commit=abc1234"
var (
	version = "v0.1.0-dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// config is the resolved CLI configuration.
type config struct {
	Coordinator   string
	Genesis       string
	Stake         uint64
	MaxTxs        uint64
	Finality      uint64
	MinBudget     uint64
	RegistryDepth uint
	Funds         uint64
	Verbosity     int
}

func defaultConfig() config {
	p := governance.DefaultParams()
	return config{
		Coordinator:   "0xc0de",
		Stake:         p.StakeAmount.Uint64(),
		MaxTxs:        p.MaxTxsPerBatch,
		Finality:      p.FinalityDelay,
		MinBudget:     p.MinRollbackBudget,
		RegistryDepth: registry.DefaultDepth,
		Funds:         100 * p.StakeAmount.Uint64(),
		Verbosity:     2,
	}
}

// run is the actual entry point, returning an exit code. Accepts CLI
// arguments (without the program name) so it can be tested in isolation.
func run(args []string) int {
	cfg, exit, code := parseFlags(args)
	if exit {
		return code
	}

	logger := log.New(verbosityToLevel(cfg.Verbosity))
	log.SetDefault(logger)

	params := governance.Params{
		StakeAmount:       uint256.NewInt(cfg.Stake),
		MaxTxsPerBatch:    cfg.MaxTxs,
		FinalityDelay:     cfg.Finality,
		MinRollbackBudget: cfg.MinBudget,
	}
	if err := params.Validate(); err != nil {
		logger.Error("invalid configuration", "err", err)
		return 1
	}

	coordinator := types.HexToAddress(cfg.Coordinator)
	reg, err := registry.New(cfg.RegistryDepth)
	if err != nil {
		logger.Error("registry init failed", "err", err)
		return 1
	}
	bank := treasury.New()
	if err := bank.Mint(coordinator, uint256.NewInt(cfg.Funds)); err != nil {
		logger.Error("coordinator funding failed", "err", err)
		return 1
	}

	chain, err := rollup.NewChain(rollup.Config{
		Coordinator:      coordinator,
		GenesisStateRoot: types.HexToHash(cfg.Genesis),
		Params:           params,
		Clock:            newLocalClock(),
		Deposits:         deposits.NewManager(),
		Accounts:         reg,
		Signatures:       &crypto.ReferenceVerifier{},
		Fraud:            fraudproof.NewVerifier(),
		Treasury:         bank,
		Log:              logger,
	})
	if err != nil {
		logger.Error("chain init failed", "err", err)
		return 1
	}

	logger.Info("hubble starting",
		"version", version,
		"coordinator", coordinator,
		"stake", params.StakeAmount,
		"maxTxs", params.MaxTxsPerBatch,
		"finalityDelay", params.FinalityDelay,
		"registryDepth", cfg.RegistryDepth,
		"tip", chain.Tip(),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String(), "tip", chain.Tip())
	return 0
}

// parseFlags parses CLI arguments into a config. Returns the config, whether
// the caller should exit immediately, and the exit code.
func parseFlags(args []string) (config, bool, int) {
	cfg := defaultConfig()

	fs := flag.NewFlagSet("hubble", flag.ContinueOnError)
	fs.StringVar(&cfg.Coordinator, "coordinator", cfg.Coordinator, "coordinator address (hex)")
	fs.StringVar(&cfg.Genesis, "genesis", cfg.Genesis, "genesis state root (hex)")
	fs.Uint64Var(&cfg.Stake, "stake", cfg.Stake, "bond required per batch")
	fs.Uint64Var(&cfg.MaxTxs, "maxtxs", cfg.MaxTxs, "transaction cap per batch")
	fs.Uint64Var(&cfg.Finality, "finality", cfg.Finality, "finality delay in blocks")
	fs.Uint64Var(&cfg.MinBudget, "minbudget", cfg.MinBudget, "minimum rollback work budget")
	fs.UintVar(&cfg.RegistryDepth, "registry.depth", cfg.RegistryDepth, "account registry depth")
	fs.Uint64Var(&cfg.Funds, "funds", cfg.Funds, "initial coordinator balance")
	fs.IntVar(&cfg.Verbosity, "verbosity", cfg.Verbosity, "log level 0-3 (0=error, 3=debug)")
	showVersion := fs.Bool("version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return cfg, true, 2
	}
	if *showVersion {
		fmt.Printf("hubble %s (commit %s)\n", version, commit)
		return cfg, true, 0
	}
	return cfg, false, 0
}

// verbosityToLevel maps the 0-3 verbosity flag onto slog levels.
func verbosityToLevel(v int) slog.Level {
	switch {
	case v <= 0:
		return slog.LevelError
	case v == 1:
		return slog.LevelWarn
	case v == 2:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// localClock measures chain height as whole seconds elapsed since process
// start. A standalone core has no consensus layer to follow; one height per
// second keeps finality windows meaningful for manual runs.
type localClock struct {
	start time.Time
}

func newLocalClock() *localClock {
	return &localClock{start: time.Now()}
}

func (c *localClock) Height() uint64 {
	return uint64(time.Since(c.start) / time.Second)
}

func (c *localClock) Now() uint64 {
	return uint64(time.Now().Unix())
}
