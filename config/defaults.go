package config

import (
	"time"

	"tick2trade/constants"
)

// Default values for optional fields.
const (
	DefaultMarketAURL = "wss://stream.bybit.com/v5/public/spot"
	DefaultMarketBURL = "wss://stream.bybit.com/v5/public/linear"
	DefaultTradeURL   = "wss://stream.bybit.com/v5/trade"
	DefaultDepth      = 50

	DefaultCategory    = "linear"
	DefaultOrderType   = "Limit"
	DefaultTimeInForce = "IOC"
	DefaultRecvWindow  = 5 * time.Second

	DefaultMaxLive      = 1
	DefaultAckTimeout   = 500 * time.Millisecond
	DefaultLatencyTicks = 3
	DefaultAuthTTL      = 10 * time.Second

	DefaultHandshakeTimeout = 10 * time.Second
	DefaultPingInterval     = 20 * time.Second
	DefaultPollTimeout      = time.Millisecond
	DefaultBackoffBase      = 250 * time.Millisecond
	DefaultBackoffMax       = 30 * time.Second
	DefaultDrainTimeout     = 2 * time.Second

	DefaultFlushEvery = 100 * time.Millisecond
	DefaultStatsEvery = time.Minute
	DefaultLogLevel   = "info"
)

func (c *Config) applyDefaults() {
	applyEndpointDefaults(&c.MarketA, DefaultMarketAURL)
	applyEndpointDefaults(&c.MarketB, DefaultMarketBURL)
	if c.Trade.URL == "" {
		c.Trade.URL = DefaultTradeURL
	}
	if c.MarketA.Symbol == "" {
		c.MarketA.Symbol = c.Instrument.Symbol
	}
	if c.MarketB.Symbol == "" {
		c.MarketB.Symbol = c.Instrument.Symbol
	}

	in := &c.Instrument
	if in.Category == "" {
		in.Category = DefaultCategory
	}
	if in.OrderType == "" {
		in.OrderType = DefaultOrderType
	}
	if in.TimeInForce == "" {
		in.TimeInForce = DefaultTimeInForce
	}
	if in.RecvWindow == 0 {
		in.RecvWindow = DefaultRecvWindow
	}

	if c.Strategy.MaxLive == 0 {
		c.Strategy.MaxLive = DefaultMaxLive
	}

	r := &c.Risk
	if r.AckTimeout == 0 {
		r.AckTimeout = DefaultAckTimeout
	}
	if r.LatencyTicks == 0 {
		r.LatencyTicks = DefaultLatencyTicks
	}
	if r.AuthTTL == 0 {
		r.AuthTTL = DefaultAuthTTL
	}

	t := &c.Transport
	if t.HandshakeTimeout == 0 {
		t.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if t.PingInterval == 0 {
		t.PingInterval = DefaultPingInterval
	}
	if t.PollTimeout == 0 {
		t.PollTimeout = DefaultPollTimeout
	}
	if t.BackoffBase == 0 {
		t.BackoffBase = DefaultBackoffBase
	}
	if t.BackoffMax == 0 {
		t.BackoffMax = DefaultBackoffMax
	}
	if t.DrainTimeout == 0 {
		t.DrainTimeout = DefaultDrainTimeout
	}
	if t.SocketBuffer == 0 {
		t.SocketBuffer = constants.SocketBufferSize
	}
	if t.ReadBuffer == 0 {
		t.ReadBuffer = constants.ReadBufferSize
	}

	if c.Threads.RingSize == 0 {
		c.Threads.RingSize = constants.DefaultRingSize
	}

	rec := &c.Recorder
	if rec.BatchSize == 0 {
		rec.BatchSize = constants.RecorderBatch
	}
	if rec.FlushEvery == 0 {
		rec.FlushEvery = DefaultFlushEvery
	}
	if rec.StatsEvery == 0 {
		rec.StatsEvery = DefaultStatsEvery
	}
	if rec.HeapSoftMB == 0 {
		rec.HeapSoftMB = constants.HeapSoftLimit >> 20
	}
	if rec.HeapHardMB == 0 {
		rec.HeapHardMB = constants.HeapHardLimit >> 20
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

func applyEndpointDefaults(e *Endpoint, url string) {
	if e.URL == "" {
		e.URL = url
	}
	if e.Depth == 0 {
		e.Depth = DefaultDepth
	}
}
