// ════════════════════════════════════════════════════════════════════════════════════════════════
// tick2trade - Main Entry Point
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: tick2trade
// Component: Process Orchestration
//
// Description:
//   Loads the configuration, starts the cold recorder thread, then turns the
//   main goroutine into Thread 0: pinned, three links, one loop.
//
// Lifecycle:
//   - Init: clock calibration → config → logging → sinks → links
//   - Run: the hot loop owns the calling thread until the kill switch
//   - Exit: Safe Mode drain, links closed, recorder flushed and closed
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package main

import (
	"context"
	"crypto/tls"
	"flag"
	"os"
	"os/signal"
	rtdebug "runtime/debug"
	"syscall"
	"time"

	"github.com/phuslu/log"

	"tick2trade/auth"
	"tick2trade/clock"
	"tick2trade/config"
	"tick2trade/control"
	"tick2trade/debug"
	"tick2trade/engine"
	"tick2trade/recorder"
	"tick2trade/ring"
	"tick2trade/transport"
)

func main() {
	path := flag.String("config", "config.yaml", "configuration file (.yaml or .toml)")
	flag.Parse()

	err := run(*path)
	if err != nil {
		debug.DropError("FATAL", err)
	}
	_ = debug.Close()
	if err != nil {
		os.Exit(1)
	}
}

func run(path string) error {
	clock.Calibrate()

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	logger, err := debug.Setup(debug.Options{
		Level:      cfg.Log.Level,
		Path:       cfg.Log.Path,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Console:    cfg.Log.Console,
		Async:      cfg.Log.Async,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Transport.HandshakeTimeout)
	err = cfg.Resolve(ctx)
	cancel()
	if err != nil {
		return err
	}

	session := config.NewSession()
	logger.Info().
		Str("session", session.ID).
		Str("fingerprint", cfg.Fingerprint()).
		Str("symbol", cfg.Instrument.Symbol).
		Msg("starting")

	// ═══ Cold thread ═══
	sinks, err := openSinks(cfg, session)
	if err != nil {
		return err
	}
	flags := control.Global()
	prod, cons := ring.New[ring.Event](cfg.Threads.RingSize)
	rec := recorder.New(recorder.Options{
		BatchSize:  cfg.Recorder.BatchSize,
		FlushEvery: cfg.Recorder.FlushEvery,
		StatsEvery: cfg.Recorder.StatsEvery,
		MaxLoss:    cfg.Risk.MaxLossDecimal(),
		HeapSoft:   uint64(cfg.Recorder.HeapSoftMB) << 20,
		HeapHard:   uint64(cfg.Recorder.HeapHardMB) << 20,
	}, flags, logger, sinks...)
	done := make(chan struct{})
	rec.Run(cfg.Threads.ColdCore, cons, flags.StopFlag(), done)

	// ═══ Hot thread ═══
	poll, err := transport.NewPoller()
	if err != nil {
		return err
	}
	defer poll.Close()

	eng, err := buildEngine(cfg, session, poll, prod, flags)
	if err != nil {
		return err
	}
	handleSignals(flags, logger)
	defer signal.Reset()

	if cfg.Threads.GCPercent != 0 {
		rtdebug.SetGCPercent(cfg.Threads.GCPercent)
	}
	if err := ring.Pin(cfg.Threads.HotCore); err != nil {
		logger.Warn().Err(err).Int("core", cfg.Threads.HotCore).Msg("hot thread not pinned")
	}

	runErr := eng.Run()

	flags.Shutdown()
	<-done
	if err := rec.Close(); err != nil {
		logger.Error().Err(err).Msg("recorder close")
	}

	for v := engine.VenueA; v <= engine.VenueB; v++ {
		st := rec.Stats(v)
		logger.Info().
			Int("venue", int(v)).
			Uint64("ticks", st.Ticks).
			Uint64("orders", st.Orders).
			Uint64("fills", st.Fills).
			Msg("session totals")
	}
	pnl := rec.PnL()
	logger.Info().Str("pnl", pnl.Total().String()).Str("position", pnl.Position().String()).Msg("stopped")
	return runErr
}

func openSinks(cfg *config.Config, s config.Session) ([]recorder.Sink, error) {
	var sinks []recorder.Sink
	if p := cfg.Recorder.SQLitePath; p != "" {
		db, err := recorder.OpenSQLite(p, s.ID, cfg.Fingerprint())
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, db)
	}
	if p := cfg.Recorder.JournalPath; p != "" {
		sinks = append(sinks, recorder.OpenJournal(recorder.JournalOptions{
			Path:       p,
			MaxSizeMB:  cfg.Recorder.JournalMaxMB,
			MaxBackups: cfg.Recorder.JournalBackups,
			Compress:   cfg.Recorder.JournalCompress,
		}, s.ID))
	}
	return sinks, nil
}

func buildEngine(cfg *config.Config, s config.Session, poll *transport.Poller, events *ring.Producer[ring.Event], flags *control.Flags) (*engine.Engine, error) {
	t := cfg.Transport
	tc := &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: t.InsecureTLS} //nolint:gosec // opt-in for local test venues
	conn := func(ep *config.Endpoint, token int32) (*transport.Conn, error) {
		return transport.New(transport.Config{
			Addr:             ep.Addr(),
			Host:             ep.Host(),
			Path:             ep.Path(),
			TLS:              tc,
			HandshakeTimeout: t.HandshakeTimeout,
			PingInterval:     t.PingInterval,
			SocketBuffer:     t.SocketBuffer,
			ReadBuffer:       t.ReadBuffer,
			Poll:             poll,
			Token:            token,
		})
	}
	a, err := conn(&cfg.MarketA, engine.TokenMarketA)
	if err != nil {
		return nil, err
	}
	b, err := conn(&cfg.MarketB, engine.TokenMarketB)
	if err != nil {
		return nil, err
	}
	tr, err := conn(&cfg.Trade, engine.TokenTrade)
	if err != nil {
		return nil, err
	}

	return engine.New(engine.Options{
		Params:       cfg.Strategy.Params(),
		Venue:        cfg.Venue(),
		Prefix:       []byte(s.Prefix),
		FirstSeq:     1,
		APIKey:       cfg.Credentials.APIKey,
		Signer:       auth.NewSigner(cfg.Credentials.APISecret),
		AuthTTL:      cfg.Risk.AuthTTL,
		TopicA:       cfg.MarketA.Topic(),
		TopicB:       cfg.MarketB.Topic(),
		AckTimeout:   cfg.Risk.AckTimeout,
		LatencyLimit: cfg.Risk.LatencyLimit,
		LatencyTicks: cfg.Risk.LatencyTicks,
		PollTimeout:  t.PollTimeout,
		BackoffBase:  t.BackoffBase,
		BackoffMax:   t.BackoffMax,
		DrainTimeout: t.DrainTimeout,
	}, engine.Deps{
		MarketA: a,
		MarketB: b,
		Trade:   tr,
		Poll:    poll,
		Events:  events,
		Flags:   flags,
		Clock:   clock.Now,
	})
}

// handleSignals maps operator signals onto the control flags:
// SIGINT, SIGTERM and SIGUSR1 pull the kill switch, SIGUSR2 clears a
// tripped loss guard.
func handleSignals(flags *control.Flags, logger *log.Logger) {
	ch := make(chan os.Signal, 4)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1, syscall.SIGUSR2)

	go func() {
		for sig := range ch {
			if sig == syscall.SIGUSR2 {
				flags.ClearLossGuard()
				logger.Warn().Msg("loss guard cleared by operator")
				continue
			}
			logger.Warn().Str("signal", sig.String()).Msg("kill switch")
			control.Kill()

			// Watchdog in case the drain hangs.
			go func() {
				time.Sleep(30 * time.Second)
				logger.Error().Msg("shutdown did not complete, exiting")
				os.Exit(2)
			}()
		}
	}()
}
