package config

import (
	"errors"
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shopspring/decimal"
)

// hostCores and hostMemory are swapped in tests.
var (
	hostCores  = func() (int, error) { return cpu.Counts(true) }
	hostMemory = totalMemory
)

func totalMemory() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.Total, nil
}

// Validate checks the configuration and returns the first problem found.
// It also caches derived values (endpoint parts, the loss limit).
func (c *Config) Validate() error {
	if c.Instrument.Symbol == "" {
		return errors.New("instrument.symbol is required")
	}
	for _, ep := range []struct {
		name   string
		e      *Endpoint
		market bool
	}{
		{"market_a", &c.MarketA, true},
		{"market_b", &c.MarketB, true},
		{"trade", &c.Trade, false},
	} {
		if err := ep.e.parse(ep.name); err != nil {
			return err
		}
		if !ep.market {
			continue
		}
		if ep.e.Symbol == "" {
			return fmt.Errorf("%s.symbol is required", ep.name)
		}
		if ep.e.Depth <= 0 {
			return fmt.Errorf("%s.depth must be positive, got %d", ep.name, ep.e.Depth)
		}
	}

	in := c.Instrument
	if in.PriceDecimals < 0 || in.PriceDecimals > 12 {
		return fmt.Errorf("instrument.price_decimals out of range: %d", in.PriceDecimals)
	}
	if in.QtyDecimals < 0 || in.QtyDecimals > 12 {
		return fmt.Errorf("instrument.qty_decimals out of range: %d", in.QtyDecimals)
	}
	if in.RecvWindow < 0 {
		return errors.New("instrument.recv_window must not be negative")
	}

	s := c.Strategy
	if s.Threshold <= 0 {
		return fmt.Errorf("strategy.threshold must be positive, got %v", s.Threshold)
	}
	if s.MaxQty < 0 || s.QtyStep < 0 {
		return errors.New("strategy.max_qty and strategy.qty_step must not be negative")
	}
	if s.MaxLive < 1 {
		return fmt.Errorf("strategy.max_live must be at least 1, got %d", s.MaxLive)
	}

	if err := c.Risk.validate(); err != nil {
		return err
	}

	t := c.Transport
	if t.BackoffMax < t.BackoffBase {
		return errors.New("transport.backoff_max must not be below transport.backoff_base")
	}
	if t.SocketBuffer < 0 || t.ReadBuffer <= 0 {
		return errors.New("transport buffer sizes must be positive")
	}

	if err := c.Threads.validate(); err != nil {
		return err
	}
	if err := c.Recorder.validate(); err != nil {
		return err
	}

	if c.Credentials.APIKey == "" || c.Credentials.APISecret == "" {
		return ErrMissingCredentials
	}
	return nil
}

func (r *Risk) validate() error {
	if r.AckTimeout <= 0 {
		return errors.New("risk.ack_timeout must be positive")
	}
	if r.LatencyLimit < 0 {
		return errors.New("risk.latency_limit must not be negative")
	}
	if r.LatencyTicks < 1 {
		return fmt.Errorf("risk.latency_ticks must be at least 1, got %d", r.LatencyTicks)
	}
	r.maxLoss = decimal.Zero
	if r.MaxLoss != "" {
		d, err := decimal.NewFromString(r.MaxLoss)
		if err != nil {
			return fmt.Errorf("risk.max_loss: %w", err)
		}
		if d.IsNegative() {
			return fmt.Errorf("risk.max_loss must not be negative, got %s", r.MaxLoss)
		}
		r.maxLoss = d
	}
	return nil
}

func (t Threads) validate() error {
	if t.RingSize <= 0 || t.RingSize&(t.RingSize-1) != 0 {
		return fmt.Errorf("threads.ring_size must be a power of two, got %d", t.RingSize)
	}
	if t.HotCore >= 0 && t.HotCore == t.ColdCore {
		return fmt.Errorf("threads.hot_core and threads.cold_core are both %d", t.HotCore)
	}
	n, err := hostCores()
	if err != nil || n <= 0 {
		return nil
	}
	if t.HotCore >= n {
		return fmt.Errorf("threads.hot_core %d exceeds %d logical cores", t.HotCore, n)
	}
	if t.ColdCore >= n {
		return fmt.Errorf("threads.cold_core %d exceeds %d logical cores", t.ColdCore, n)
	}
	return nil
}

func (r Recorder) validate() error {
	if r.BatchSize <= 0 {
		return errors.New("recorder.batch_size must be positive")
	}
	if r.HeapSoftMB <= 0 || r.HeapHardMB < r.HeapSoftMB {
		return fmt.Errorf("recorder heap limits invalid: soft %d MB, hard %d MB", r.HeapSoftMB, r.HeapHardMB)
	}
	total, err := hostMemory()
	if err != nil || total == 0 {
		return nil
	}
	if uint64(r.HeapHardMB)<<20 > total {
		return fmt.Errorf("recorder.heap_hard_mb %d exceeds host memory (%d MB)", r.HeapHardMB, total>>20)
	}
	return nil
}
