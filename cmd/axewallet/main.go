// Package main is the axewallet command line wallet.
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

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/axewallet/internal/chain"
	"github.com/goodnatureofminers/axewallet/internal/hash"
	"github.com/goodnatureofminers/axewallet/internal/indexer"
	"github.com/goodnatureofminers/axewallet/internal/metrics"
	"github.com/goodnatureofminers/axewallet/internal/store"
	"github.com/goodnatureofminers/axewallet/internal/wallet"
)

type config struct {
	Network      string        `long:"network" env:"AXEWALLET_NETWORK" description:"network parameter set (superaxe, bitcoin, testnet3, regtest, signet)" default:"superaxe"`
	APIURL       string        `long:"api-url" env:"AXEWALLET_API_URL" description:"indexer API base URL" default:"https://api.superaxecoin.com"`
	HTTPTimeout  time.Duration `long:"http-timeout" env:"AXEWALLET_HTTP_TIMEOUT" description:"HTTP timeout for indexer requests" default:"30s"`
	RPS          int           `long:"rps" env:"AXEWALLET_RPS" description:"max indexer requests per second, 0 disables the limit" default:"5"`
	DB           string        `long:"db" env:"AXEWALLET_DB" description:"wallet database file" default:"axewallet.db"`
	MetricsAddr  string        `long:"metrics-addr" env:"AXEWALLET_METRICS_ADDR" description:"address for metrics server (watch only)" default:":2112"`
	Password     string        `long:"password" env:"AXEWALLET_PASSWORD" description:"wallet encryption password"`
	PubKeyHashID int           `long:"pubkeyhash-id" env:"AXEWALLET_PUBKEYHASH_ID" description:"override P2PKH version byte" default:"-1"`
	ScriptHashID int           `long:"scripthash-id" env:"AXEWALLET_SCRIPTHASH_ID" description:"override P2SH version byte" default:"-1"`
	WIFID        int           `long:"wif-id" env:"AXEWALLET_WIF_ID" description:"override WIF version byte" default:"-1"`
	Bech32HRP    string        `long:"bech32-hrp" env:"AXEWALLET_BECH32_HRP" description:"override bech32 human readable part"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	a := &app{ctx: ctx, logger: logger, out: os.Stdout}
	parser := flags.NewParser(&a.cfg, flags.Default)
	if err := registerCommands(parser, a); err != nil {
		logger.Fatal("failed to register commands", zap.Error(err))
	}

	if _, err := parser.Parse(); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && (ferr.Type == flags.ErrHelp || ferr.Type == flags.ErrCommandRequired) {
			return
		}
		logger.Fatal("axewallet failed", zap.Error(err))
	}
}

func prefixOverride(name string, v int) (*byte, error) {
	if v < 0 {
		return nil, nil
	}
	if v > 0xff {
		return nil, fmt.Errorf("%s %d does not fit in a byte", name, v)
	}
	b := byte(v)
	return &b, nil
}

func networkParams(cfg config) (chain.Params, error) {
	params, err := chain.ForNetwork(cfg.Network)
	if err != nil {
		return chain.Params{}, err
	}
	var o chain.Overrides
	if o.PubKeyHashAddrID, err = prefixOverride("pubkeyhash-id", cfg.PubKeyHashID); err != nil {
		return chain.Params{}, err
	}
	if o.ScriptHashAddrID, err = prefixOverride("scripthash-id", cfg.ScriptHashID); err != nil {
		return chain.Params{}, err
	}
	if o.WIFAddrID, err = prefixOverride("wif-id", cfg.WIFID); err != nil {
		return chain.Params{}, err
	}
	o.Bech32HRP = cfg.Bech32HRP
	return params.Apply(o), nil
}

// env is everything a command needs once the configuration is parsed.
type env struct {
	params  chain.Params
	client  *indexer.Client
	wallet  *wallet.Service
	storage *store.BoltStorage
}

func (e *env) Close() error {
	if e.storage == nil {
		return nil
	}
	return e.storage.Close()
}

func newEnv(cfg config, logger *zap.Logger) (*env, error) {
	params, err := networkParams(cfg)
	if err != nil {
		return nil, fmt.Errorf("network parameters: %w", err)
	}
	logger.Debug("using network",
		zap.String("network", params.Name),
		zap.String("ripemd160", hash.Provider().Name()),
	)

	storage, err := store.OpenBolt(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	client := indexer.New(indexer.Config{
		BaseURL: cfg.APIURL,
		Timeout: cfg.HTTPTimeout,
		RPS:     cfg.RPS,
	}, metrics.NewIndexerClient(params.Name), logger)

	svc := wallet.NewService(params, client, storage, store.NewVault(), metrics.NewWallet(params.Name), logger)
	return &env{params: params, client: client, wallet: svc, storage: storage}, nil
}

func startMetricsServer(ctx context.Context, addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("starting metrics server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown metrics server", zap.Error(err))
		}
	}()
}
