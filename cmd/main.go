package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"depthview/internal/aggregation"
	"depthview/internal/cache/redis"
	"depthview/internal/chart"
	"depthview/internal/config"
	"depthview/internal/exchange"
	"depthview/internal/factory"
	"depthview/internal/logger"
	"depthview/internal/poller"
	"depthview/internal/types"
	"depthview/internal/websocket"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Parse command line flags
	var configPath = flag.String("config", "", "Path to a TOML configuration file")
	var symbol = flag.String("symbol", "", "Trading symbol to monitor (overrides config)")
	var exchangeName = flag.String("exchange", "", "Quote source, e.g. binance, binancef, bybit, okx, kraken, coinbase (overrides config)")
	var granularity = flag.Float64("granularity", 0, "Bucket width, one of 0.01, 0.1, 1, 10, 100 (overrides config)")
	var policy = flag.String("policy", "", "Aggregation policy: proportional or fixed (overrides config)")
	var port = flag.Int("port", 0, "HTTP port (overrides config)")
	var interval = flag.Duration("interval", 0, "Polling interval (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *symbol != "" {
		cfg.SetSymbol(*symbol)
	}
	if *exchangeName != "" {
		cfg.SetExchange(exchange.ExchangeName(*exchangeName))
	}
	if *granularity != 0 {
		cfg.SetGranularity(types.Granularity(*granularity))
	}
	if *policy != "" {
		cfg.SetPolicy(aggregation.Policy(*policy))
	}
	if *port != 0 {
		cfg.SetPort(*port)
	}
	if *interval != 0 {
		cfg.SetPollInterval(*interval)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Filename:   cfg.Log.File,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("depthview stopped with error", zap.Error(err))
		os.Exit(1)
	}
	log.Info("depthview stopped")
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	source, err := factory.NewQuoteSource(factory.SourceConfig{
		Name:    cfg.Exchange.Name,
		BaseURL: cfg.Exchange.BaseURL,
		Limit:   cfg.Exchange.Limit,
		Timeout: cfg.Poll.FetchTimeout.Duration,
	}, log)
	if err != nil {
		return err
	}

	var publishers []poller.Publisher

	// The poller is built before the server, but the server must be a publisher.
	// A forwarding publisher breaks the cycle.
	relay := &serverRelay{}
	publishers = append(publishers, relay)

	if cfg.Redis.Addr != "" {
		client, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer client.Close()
		publishers = append(publishers, redis.NewFrameCache(client, cfg.Redis.TTL.Duration))
		log.Info("publishing frames to redis", zap.String("addr", cfg.Redis.Addr))
	}

	p, err := poller.New(pollerConfig(cfg), source, log, publishers...)
	if err != nil {
		return err
	}

	server := websocket.NewServer(strconv.Itoa(cfg.Server.Port), p, log)
	relay.server = server

	log.Info("starting depthview",
		zap.String("exchange", string(cfg.Exchange.Name)),
		zap.String("symbol", cfg.Exchange.Symbol),
		zap.String("policy", cfg.Aggregation.Policy),
		zap.Float64("granularity", cfg.Aggregation.Granularity),
		zap.Duration("interval", cfg.Poll.Interval.Duration),
		zap.Int("port", cfg.Server.Port),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.Run(gctx)
	})
	g.Go(func() error {
		return server.Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func pollerConfig(cfg *config.Config) poller.Config {
	return poller.Config{
		Symbol:            cfg.Exchange.Symbol,
		Granularity:       types.Granularity(cfg.Aggregation.Granularity),
		Policy:            aggregation.Policy(cfg.Aggregation.Policy),
		FixedBins:         cfg.Aggregation.FixedBins,
		FixedWidth:        decimal.NewFromFloat(cfg.Aggregation.FixedWidth),
		PricePrecision:    int32(cfg.Display.PricePrecision),
		QuantityPrecision: int32(cfg.Display.QuantityPrecision),
		MidPrecision:      int32(cfg.Display.MidPrecision),
		Levels:            cfg.Display.Levels,
		PollInterval:      cfg.Poll.Interval.Duration,
		FetchTimeout:      cfg.Poll.FetchTimeout.Duration,
		Retention:         cfg.Poll.Retention.Duration,
		RangePolicy:       chart.RangePolicy(cfg.Display.RangePolicy),
	}
}

// serverRelay forwards frames to the websocket server once it exists
type serverRelay struct {
	server *websocket.Server
}

func (r *serverRelay) Publish(ctx context.Context, frame *chart.Frame) error {
	if r.server == nil {
		return nil
	}
	return r.server.Publish(ctx, frame)
}
