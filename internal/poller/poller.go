package poller

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"depthview/internal/aggregation"
	"depthview/internal/chart"
	"depthview/internal/exchange"
	"depthview/internal/orderbook"
	"depthview/internal/types"
	"depthview/internal/window"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Publisher receives every rendered frame
type Publisher interface {
	Publish(ctx context.Context, frame *chart.Frame) error
}

// Config holds the poller's initial settings
type Config struct {
	Symbol            string
	Granularity       types.Granularity
	Policy            aggregation.Policy
	FixedBins         int
	FixedWidth        decimal.Decimal
	PricePrecision    int32
	QuantityPrecision int32
	MidPrecision      int32
	Levels            int
	PollInterval      time.Duration
	FetchTimeout      time.Duration
	Retention         time.Duration
	RangePolicy       chart.RangePolicy
}

// Status summarises the loop for health checks
type Status struct {
	Exchange    exchange.ExchangeName `json:"exchange"`
	Symbol      string                `json:"symbol"`
	Ticks       int64                 `json:"ticks"`
	Failures    int64                 `json:"failures"`
	LastTick    time.Time             `json:"lastTick"`
	LastSuccess time.Time             `json:"lastSuccess"`
	LastError   string                `json:"lastError,omitempty"`
	Samples     int                   `json:"samples"`
	Source      exchange.HealthStatus `json:"source"`
}

// symbolState is everything that must not leak from one symbol to the next
type symbolState struct {
	symbol string
	book   *orderbook.OrderBook
	agg    types.Aggregator
	window *window.Window
	ranges *chart.RangeCalculator
}

type granularitySetter interface {
	SetGranularity(types.Granularity) error
}

// Poller runs fetch -> aggregate -> window -> render -> publish on a fixed
// interval. Ticks never overlap: the loop goroutine owns all per-symbol
// state and controls are applied between ticks.
type Poller struct {
	cfg        Config
	source     exchange.QuoteSource
	publishers []Publisher
	logger     *zap.Logger
	controls   chan Control
	now        func() time.Time

	state *symbolState

	mu     sync.RWMutex
	latest *chart.Frame
	status Status
}

// New creates a poller for source. The symbol is normalised to upper case.
func New(cfg Config, source exchange.QuoteSource, logger *zap.Logger, publishers ...Publisher) (*Poller, error) {
	cfg.Symbol = strings.ToUpper(strings.TrimSpace(cfg.Symbol))
	if cfg.Symbol == "" {
		return nil, fmt.Errorf("empty symbol: %w", types.ErrConfiguration)
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval %s must be positive: %w", cfg.PollInterval, types.ErrConfiguration)
	}
	if cfg.FetchTimeout <= 0 {
		return nil, fmt.Errorf("fetch timeout %s must be positive: %w", cfg.FetchTimeout, types.ErrConfiguration)
	}
	if cfg.Levels <= 0 {
		return nil, fmt.Errorf("levels %d must be positive: %w", cfg.Levels, types.ErrConfiguration)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Poller{
		cfg:        cfg,
		source:     source,
		publishers: publishers,
		logger:     logger.Named("poller"),
		controls:   make(chan Control, 16),
		now:        time.Now,
	}

	state, err := p.newSymbolState(cfg.Symbol)
	if err != nil {
		return nil, err
	}
	p.state = state
	p.status = Status{Exchange: source.GetName(), Symbol: cfg.Symbol}
	return p, nil
}

func (p *Poller) newSymbolState(symbol string) (*symbolState, error) {
	agg, err := aggregation.New(aggregation.Options{
		Policy:      p.cfg.Policy,
		Granularity: p.cfg.Granularity,
		FixedBins:   p.cfg.FixedBins,
		FixedWidth:  p.cfg.FixedWidth,
	})
	if err != nil {
		return nil, err
	}
	w, err := window.New(p.cfg.Retention)
	if err != nil {
		return nil, err
	}
	ranges, err := chart.NewRangeCalculator(p.cfg.RangePolicy)
	if err != nil {
		return nil, err
	}
	return &symbolState{
		symbol: symbol,
		book:   orderbook.New(),
		agg:    agg,
		window: w,
		ranges: ranges,
	}, nil
}

// Run ticks immediately and then every poll interval until ctx is done.
// Ticks that fall due while one is running are coalesced by the ticker.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	p.logger.Info("poller started",
		zap.String("exchange", string(p.source.GetName())),
		zap.String("symbol", p.cfg.Symbol),
		zap.Duration("interval", p.cfg.PollInterval))

	p.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return nil
		case <-ticker.C:
			p.Tick(ctx)
		case ctl := <-p.controls:
			changed, err := p.apply(ctl)
			if err != nil {
				p.logger.Warn("failed to apply control", zap.String("type", string(ctl.Type)), zap.Error(err))
				continue
			}
			if changed {
				p.Tick(ctx)
			}
		}
	}
}

// Submit queues a control for the loop. Invalid controls are rejected
// immediately with types.ErrConfiguration.
func (p *Poller) Submit(ctx context.Context, ctl Control) error {
	if err := ctl.Validate(); err != nil {
		return err
	}
	if err := p.checkPolicy(ctl); err != nil {
		return err
	}
	select {
	case p.controls <- ctl:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Latest returns the most recent frame, or nil before the first success
func (p *Poller) Latest() *chart.Frame {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest
}

// Status returns the loop and source health
func (p *Poller) Status() Status {
	p.mu.RLock()
	s := p.status
	p.mu.RUnlock()
	s.Source = p.source.Health()
	return s
}

// Tick runs one pipeline pass. On a fetch or parse failure the previous
// frame stays current and the error is returned after being logged.
func (p *Poller) Tick(ctx context.Context) (*chart.Frame, error) {
	start := p.now()
	st := p.state

	p.mu.Lock()
	p.status.Ticks++
	p.status.LastTick = start
	p.status.Symbol = st.symbol
	p.mu.Unlock()

	fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.FetchTimeout)
	snapshot, err := p.source.GetSnapshot(fetchCtx, st.symbol)
	cancel()
	if err != nil {
		return nil, p.fail(st.symbol, err)
	}
	if err := st.book.LoadSnapshot(snapshot); err != nil {
		return nil, p.fail(st.symbol, err)
	}

	mid, hasMid := st.book.MidPrice()
	bids, err := st.agg.Aggregate(types.Bid, st.book.GetBids(), mid)
	if err != nil {
		return nil, p.fail(st.symbol, err)
	}
	asks, err := st.agg.Aggregate(types.Ask, st.book.GetAsks(), mid)
	if err != nil {
		return nil, p.fail(st.symbol, err)
	}

	now := p.now()
	if hasMid {
		st.window.Push(now, mid)
	}
	st.window.Prune(now)
	samples := st.window.Snapshot()

	var (
		yRange   types.DisplayRange
		midLabel string
	)
	if hasMid {
		yRange = st.ranges.Calculate(mid, st.window.Prices())
		midLabel = chart.FormatMid(mid, p.cfg.MidPrecision)
	} else if n := len(samples); n > 0 {
		yRange = st.ranges.Calculate(samples[n-1].Price, st.window.Prices())
	}

	plotBids, plotAsks := bids, asks
	if p.cfg.Policy != aggregation.PolicyFixed {
		plotBids = chart.NearestBids(bids, p.cfg.Levels)
		plotAsks = chart.NearestAsks(asks, p.cfg.Levels)
	}

	frame := &chart.Frame{
		Exchange:  string(p.source.GetName()),
		Symbol:    st.symbol,
		Timestamp: now,
		MidPrice:  mid,
		MidLabel:  midLabel,
		Settings:  p.settings(),
		Depth:     chart.NewDepthChart(st.symbol, plotBids, plotAsks, st.agg.BucketWidth()),
		MidChart:  chart.NewMidPriceChart(st.symbol, samples, now, st.window.Retention(), yRange, midLabel),
		AskTable:  chart.NewAskTable(asks, p.cfg.Levels, p.cfg.PricePrecision, p.cfg.QuantityPrecision),
		BidTable:  chart.NewBidTable(bids, p.cfg.Levels, p.cfg.PricePrecision, p.cfg.QuantityPrecision),
		Stats:     st.book.GetStats(),
	}
	if grid, ok := st.agg.(*aggregation.FixedGrid); ok {
		frame.Dropped = grid.Dropped()
	}

	p.mu.Lock()
	p.latest = frame
	p.status.LastSuccess = now
	p.status.LastError = ""
	p.status.Samples = len(samples)
	p.mu.Unlock()

	for _, pub := range p.publishers {
		if err := pub.Publish(ctx, frame); err != nil {
			p.logger.Warn("failed to publish frame", zap.String("symbol", st.symbol), zap.Error(err))
		}
	}

	p.logger.Debug("tick complete",
		zap.String("symbol", st.symbol),
		zap.Int("bid_buckets", len(bids)),
		zap.Int("ask_buckets", len(asks)),
		zap.Duration("took", p.now().Sub(start)))

	return frame, nil
}

func (p *Poller) fail(symbol string, err error) error {
	p.mu.Lock()
	p.status.Failures++
	p.status.LastError = err.Error()
	p.mu.Unlock()

	p.logger.Warn("tick failed",
		zap.String("exchange", string(p.source.GetName())),
		zap.String("symbol", symbol),
		zap.Error(err))
	return err
}

// apply changes the current settings and reports whether anything changed
func (p *Poller) apply(ctl Control) (bool, error) {
	if err := ctl.Validate(); err != nil {
		return false, err
	}
	if err := p.checkPolicy(ctl); err != nil {
		return false, err
	}

	switch ctl.Type {
	case ControlSetGranularity:
		return p.setGranularity(ctl.Granularity)
	case ControlGranularityUp:
		return p.setGranularity(types.GetNextGranularity(p.cfg.Granularity))
	case ControlGranularityDown:
		return p.setGranularity(types.GetPreviousGranularity(p.cfg.Granularity))
	case ControlSetPrecision:
		if ctl.PricePrecision != nil {
			p.cfg.PricePrecision = *ctl.PricePrecision
		}
		if ctl.QuantityPrecision != nil {
			p.cfg.QuantityPrecision = *ctl.QuantityPrecision
			p.cfg.MidPrecision = *ctl.QuantityPrecision + 2
		}
		p.logger.Info("precision changed",
			zap.Int32("price", p.cfg.PricePrecision),
			zap.Int32("quantity", p.cfg.QuantityPrecision))
		return true, nil
	case ControlChangeSymbol:
		symbol := strings.ToUpper(strings.TrimSpace(ctl.Symbol))
		if symbol == p.state.symbol {
			return false, nil
		}
		state, err := p.newSymbolState(symbol)
		if err != nil {
			return false, err
		}
		p.logger.Info("symbol changed", zap.String("from", p.state.symbol), zap.String("to", symbol))
		p.state = state
		p.cfg.Symbol = symbol
		return true, nil
	}
	return false, nil
}

// checkPolicy rejects granularity controls under the fixed grid, whose bucket
// width is set once at startup. Policy never changes after New.
func (p *Poller) checkPolicy(ctl Control) error {
	switch ctl.Type {
	case ControlSetGranularity, ControlGranularityUp, ControlGranularityDown:
		if p.cfg.Policy == aggregation.PolicyFixed {
			return fmt.Errorf("%s is not supported by the fixed policy: %w", ctl.Type, types.ErrConfiguration)
		}
	}
	return nil
}

func (p *Poller) setGranularity(g types.Granularity) (bool, error) {
	if g == p.cfg.Granularity {
		return false, nil
	}
	setter, ok := p.state.agg.(granularitySetter)
	if !ok {
		return false, fmt.Errorf("aggregator has a fixed bucket width: %w", types.ErrConfiguration)
	}
	if err := setter.SetGranularity(g); err != nil {
		return false, err
	}
	p.cfg.Granularity = g
	p.logger.Info("granularity changed", zap.String("granularity", g.String()))
	return true, nil
}

func (p *Poller) settings() chart.Settings {
	policy := p.cfg.Policy
	if policy == "" {
		policy = aggregation.PolicyProportional
	}
	return chart.Settings{
		Granularity:       p.cfg.Granularity.String(),
		Policy:            string(policy),
		PricePrecision:    p.cfg.PricePrecision,
		QuantityPrecision: p.cfg.QuantityPrecision,
		MidPrecision:      p.cfg.MidPrecision,
		Levels:            p.cfg.Levels,
	}
}
