package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/anyswap/CrossChain-HTLC/cmd/utils"
	"github.com/anyswap/CrossChain-HTLC/disclosure"
	"github.com/anyswap/CrossChain-HTLC/events"
	"github.com/anyswap/CrossChain-HTLC/internal/swapapi"
	"github.com/anyswap/CrossChain-HTLC/leveldb"
	"github.com/anyswap/CrossChain-HTLC/liveness"
	"github.com/anyswap/CrossChain-HTLC/log"
	"github.com/anyswap/CrossChain-HTLC/mediator"
	"github.com/anyswap/CrossChain-HTLC/mongodb"
	"github.com/anyswap/CrossChain-HTLC/orchestrator"
	"github.com/anyswap/CrossChain-HTLC/params"
	"github.com/anyswap/CrossChain-HTLC/postgres"
	"github.com/anyswap/CrossChain-HTLC/registry"
	rpcserver "github.com/anyswap/CrossChain-HTLC/rpc/server"
	"github.com/anyswap/CrossChain-HTLC/signer"
	"github.com/anyswap/CrossChain-HTLC/tokens"
	"github.com/anyswap/CrossChain-HTLC/tokens/cardano"
	"github.com/anyswap/CrossChain-HTLC/tokens/eth"
	"github.com/anyswap/CrossChain-HTLC/tools"
	"github.com/anyswap/CrossChain-HTLC/types"
	"github.com/anyswap/CrossChain-HTLC/validator"
	"github.com/anyswap/CrossChain-HTLC/worker"
)

const stopTimeout = 30 * time.Second

var (
	clientIdentifier = "htlcrelayer"
	// Git SHA1 commit hash of the release (set via linker flags)
	gitCommit = ""
	gitDate   = ""
	// The app that holds all commands and flags.
	app = utils.NewApp(clientIdentifier, gitCommit, gitDate, "the htlc swap relayer command line interface")
)

func initApp() {
	// Initialize the CLI app and start action
	app.Action = htlcrelayer
	app.HideVersion = true // we have a command to print the version
	app.Commands = []*cli.Command{
		utils.VersionCommand,
	}
	app.Flags = []cli.Flag{
		utils.ConfigFileFlag,
		utils.LogFileFlag,
		utils.LogRotationFlag,
		utils.LogMaxAgeFlag,
		utils.VerbosityFlag,
		utils.JSONFormatFlag,
		utils.ColorFormatFlag,
	}
	sort.Sort(cli.CommandsByName(app.Commands))
}

func main() {
	initApp()
	if err := app.Run(os.Args); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func htlcrelayer(ctx *cli.Context) error {
	utils.SetLogger(ctx)
	if ctx.NArg() > 0 {
		return fmt.Errorf("invalid command: %q", ctx.Args().Get(0))
	}
	config := params.LoadConfig(utils.GetConfigFilePath(ctx))
	swapCfg := config.Swap

	reg, err := openRegistry(config.Storage)
	if err != nil {
		return err
	}
	defer func() {
		if err := reg.Close(); err != nil {
			log.Warn("close registry failed", "err", err)
		}
	}()

	adapters, err := openAdapters(config.Chains)
	if err != nil {
		return err
	}

	bus := events.NewBus()
	enforcer := liveness.NewEnforcer(reg, openSink(config.Disclosure), bus, swapCfg.MaxSecretHoldTime, swapCfg.HashAlgorithm)
	med := mediator.New(reg, bus, swapCfg.MaxSecretHoldTime, swapCfg.HashAlgorithm)
	med.SetDiscloser(enforcer)
	enforcer.SetRevealer(med)
	if err = med.Recover(); err != nil {
		return fmt.Errorf("recover mediator state: %w", err)
	}

	timeout := worker.NewTimeoutMonitor(reg, bus, med, swapCfg.AlertWindow)
	monitor := worker.NewChainMonitor(reg, bus, med, swapCfg.HashAlgorithm)
	for _, chain := range config.Chains {
		adapter, _ := adapters.Get(chain.Name)
		monitor.AddChain(adapter, worker.ScanOptions{
			Confirmations: *chain.Confirmations,
			MaxScanRange:  chain.MaxScanRange,
			StartHeight:   chain.StartHeight,
		})
	}

	components := &worker.Components{
		Bus:          bus,
		Mediator:     med,
		Enforcer:     enforcer,
		Timeout:      timeout,
		ChainMonitor: monitor,
		Feed:         disclosure.NewFeed(disclosure.DefaultFeedCapacity),
	}
	if config.Email != nil {
		mailer := tools.NewMailer(config.Email)
		components.Mailer = worker.NewAlertMailer(config.Identifier, mailer.SendEmail, config.Email.MinInterval)
	}
	if params.IsResolverEnabled() {
		wallet := signer.NewClient(config.Resolver.SignerRPC)
		checkSignerAddress(wallet, config)
		components.Orchestrator = orchestrator.New(reg, adapters, wallet, med, config.Resolver)
		log.Info("resolver orchestration enabled", "resolver", config.Resolver.Address)
	}

	sigCtx, cancel := utils.SignalContext()
	defer cancel()

	scheduler, err := worker.StartWork(sigCtx, components, swapCfg)
	if err != nil {
		return err
	}

	api := swapapi.NewAPI(config, reg, med, timeout, validator.OptionsFromConfig())
	api.SetJobStatsProvider(scheduler)
	api.SetFeed(components.Feed)
	if components.Orchestrator != nil {
		api.SetOrchestrator(components.Orchestrator)
	}
	if _, err = rpcserver.StartAPIServer(sigCtx, api, config.APIServer); err != nil {
		cancel()
		scheduler.Stop()
		return err
	}

	worker.WaitStopped(sigCtx, scheduler, stopTimeout)
	log.Info("htlcrelayer stopped")
	return nil
}

// swaps are matched by taker, so the signer account must be the resolver address
func checkSignerAddress(wallet *signer.Client, config *params.RelayerConfig) {
	for _, chain := range config.Chains {
		if types.ChainFamily(chain.Family) != types.FamilyEVM {
			continue
		}
		address, err := wallet.GetAddress(chain.Name)
		if err != nil {
			log.Warn("query signer address failed", "chain", chain.Name, "err", err)
			continue
		}
		if !strings.EqualFold(address, config.Resolver.Address) {
			log.Warn("signer address differs from resolver address", "chain", chain.Name, "signer", address, "resolver", config.Resolver.Address)
		}
	}
}

func openRegistry(config *params.StorageConfig) (registry.Registry, error) {
	log.Info("open registry", "backend", config.Backend)
	switch config.Backend {
	case params.BackendLevelDB:
		dbConfig := config.LevelDB
		db, err := leveldb.New(dbConfig.Path, dbConfig.Cache, dbConfig.Handles)
		if err != nil {
			return nil, err
		}
		return leveldb.NewRegistry(db), nil
	case params.BackendMongoDB:
		return mongodb.MongoServerInit(config.MongoDB)
	case params.BackendPostgres:
		return postgres.NewRegistry(config.Postgres.DSN)
	default:
		return nil, fmt.Errorf("unsupported storage backend %v", config.Backend)
	}
}

func openAdapters(chains []*params.ChainConfig) (*tokens.Adapters, error) {
	adapters := tokens.NewAdapters()
	for _, chain := range chains {
		switch types.ChainFamily(chain.Family) {
		case types.FamilyEVM:
			adapter, err := eth.NewAdapter(chain)
			if err != nil {
				return nil, fmt.Errorf("init %v adapter: %w", chain.Name, err)
			}
			adapters.Add(adapter)
		case types.FamilyUTXO:
			adapters.Add(cardano.NewAdapter(chain))
		default:
			return nil, fmt.Errorf("%w: %v family %v", types.ErrUnknownChain, chain.Name, chain.Family)
		}
		log.Info("init chain adapter", "chain", chain.Name, "family", chain.Family)
	}
	return adapters, nil
}

func openSink(config *params.DisclosureConfig) disclosure.Sink {
	if config != nil && config.IPFSAPI != "" {
		log.Info("public disclosure to ipfs", "api", config.IPFSAPI)
		return disclosure.NewIPFSSink(config)
	}
	log.Warn("no public disclosure sink configured, force revealed secrets stay in process memory")
	return disclosure.NewMemorySink()
}
