package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"fxtrader/internal/bus"
	"fxtrader/internal/engine"
	"fxtrader/internal/execution"
	"fxtrader/internal/feed"
	"fxtrader/internal/ledger"
	"fxtrader/internal/obs"
	"fxtrader/internal/ops"
	"fxtrader/internal/portfolio"
	"fxtrader/internal/price"
	"fxtrader/internal/recorder"
	"fxtrader/internal/schema"
	"fxtrader/internal/state"
)

const (
	feedStream    = "stream"
	feedWebSocket = "websocket"

	ledgerFile   = "live.csv"
	snapshotFile = "positions.json"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON or YAML config")
	envFile := flag.String("env", "", "Dotenv file with broker secrets (default: ./.env if present)")
	feedKind := flag.String("feed", feedStream, "Price feed: stream|websocket")
	snapshotPath := flag.String("snapshot", "", "Position snapshot path (default: <wal-dir>/positions.json)")
	recoverEnabled := flag.Bool("recover", true, "Recover net positions from snapshot + WAL on start")
	verbose := flag.Bool("verbose", false, "Log every simulated order")
	flag.Parse()

	var envFiles []string
	if *envFile != "" {
		envFiles = append(envFiles, *envFile)
	}
	if err := ops.LoadDotEnv(envFiles...); err != nil {
		log.Fatalf("dotenv load failed: %v", err)
	}

	cfg, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	cfg.ApplyEnv()
	if err := cfg.RequireBroker(); err != nil {
		log.Fatalf("broker config: %v", err)
	}
	if *feedKind != feedStream && *feedKind != feedWebSocket {
		log.Fatalf("unknown feed %q", *feedKind)
	}
	if *feedKind == feedWebSocket && cfg.Broker.WebSocketURL == "" {
		log.Fatalf("websocket feed needs broker.websocketUrl")
	}
	if *snapshotPath == "" {
		*snapshotPath = filepath.Join(cfg.WALDir, snapshotFile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Profiling.Enabled {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: cfg.Profiling.AppName,
			ServerAddress:   cfg.Profiling.ServerAddress,
			Tags: map[string]string{
				"domain": cfg.Broker.Domain,
			},
			Logger: profilerLogger{},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			log.Fatalf("pyroscope start failed: %v", err)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	if err := run(ctx, cfg, *feedKind, *snapshotPath, *recoverEnabled, *verbose); err != nil {
		log.Fatalf("trader failed: %v", err)
	}
}

func run(ctx context.Context, cfg ops.Loaded, feedKind, snapshotPath string, recoverEnabled, verbose bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	recoverCfg := state.RecoverConfig{WALDir: cfg.WALDir}
	if _, err := os.Stat(snapshotPath); err == nil {
		recoverCfg.SnapshotPath = snapshotPath
	}

	var lastSeq uint64
	if recoverEnabled {
		if err := os.MkdirAll(cfg.WALDir, 0o755); err != nil {
			return errors.Wrap(err, "create wal dir").With("dir", cfg.WALDir)
		}
		recovered, err := state.RecoverPositions(ctx, recoverCfg)
		if err != nil {
			return err
		}
		lastSeq = recovered.LastSeq
		logs.Infof("recovered positions: %d, orders: %d, last seq: %d", recovered.Positions.Count(), recovered.Orders, lastSeq)
		for _, i := range recovered.Positions.Instruments() {
			logs.Infof("recovered %s units: %d", i, recovered.Positions.Units(i))
		}
	}

	metrics := obs.NewMetrics()
	if cfg.MetricsAddr != "" {
		srv, err := obs.Serve(cfg.MetricsAddr, metrics)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logs.Infof("metrics listening on %s", cfg.MetricsAddr)
	}

	wal, err := recorder.NewWriter(recorder.DefaultConfig(cfg.WALDir))
	if err != nil {
		return err
	}
	if err := wal.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	source := recorder.SourceStream
	if feedKind == feedWebSocket {
		source = recorder.SourceWebSocket
	}
	events := recorder.NewEvents(wal, source, obs.NewTraceGenerator(0))
	events.Resume(lastSeq)

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return errors.Wrap(err, "create output dir").With("dir", cfg.OutputDir)
	}
	csvSink, err := ledger.CreateCSV(filepath.Join(cfg.OutputDir, ledgerFile), cfg.Instruments)
	if err != nil {
		return err
	}

	table := price.NewTable(cfg.Instruments...)
	p, err := portfolio.New(cfg.Portfolio(), table, portfolio.WithLedger(csvSink))
	if err != nil {
		return err
	}
	strat, err := cfg.NewStrategy()
	if err != nil {
		return err
	}

	var (
		sink  execution.Sink
		async *execution.Async
	)
	if cfg.Broker.Simulated {
		sink = execution.NewSimulated(verbose)
	} else {
		var opts []execution.BrokerOption
		if cfg.Broker.RESTURL != "" {
			opts = append(opts, execution.WithBaseURL(cfg.Broker.RESTURL))
		}
		broker := execution.NewBroker(&http.Client{}, cfg.Broker.Domain, cfg.Broker.AccountID, cfg.Broker.AccessToken, opts...)
		async = execution.NewAsync(broker, cfg.Broker.Workers, cfg.Broker.QueueSize)
		async.Run(ctx)
		defer async.Close()
		sink = async
	}

	queue := bus.NewQueue(cfg.QueueSize)
	e, err := engine.New(queue, strat, p, sink, engine.WithMetrics(metrics), engine.WithRecorder(events))
	if err != nil {
		return err
	}

	pairs := portfolio.FeedInstruments(cfg.HomeCurrency, cfg.Instruments)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		if err := runFeed(ctx, cfg, feedKind, pairs, table, queue); err != nil {
			logs.Errorf("price feed stopped, err: %+v", err)
		}
	}()

	res, runErr := e.RunLive(ctx)
	cancel()
	wg.Wait()
	if async != nil {
		// the loop has drained, nothing submits after this point
		async.Close()
		async.Wait()
		logs.Infof("broker orders failed: %d", async.Failed())
	}
	logs.Infof("trader finished, state: %s, iterations: %d, ticks: %d, signals: %d, orders: %d, rejected: %d, failed: %d",
		res.State, res.Iterations, res.Ticks, res.Signals, res.Orders, res.Rejected, res.Failed)

	if err := p.Close(); err != nil {
		logs.Errorf("close ledger, err: %+v", err)
	}
	if err := wal.Close(); err != nil {
		return errors.Wrap(err, "close wal")
	}
	if runErr != nil {
		return runErr
	}

	checkpoint, err := state.RecoverPositions(context.Background(), recoverCfg)
	if err != nil {
		return err
	}
	if err := state.WriteSnapshot(snapshotPath, checkpoint.Positions.Snapshot(time.Now(), checkpoint.LastSeq)); err != nil {
		return err
	}
	logs.Infof("snapshot written, path: %s, positions: %d, last seq: %d", snapshotPath, checkpoint.Positions.Count(), checkpoint.LastSeq)

	m := metrics.Snapshot()
	logs.Infof("metrics, events: %v, rejected: %d, order failures: %d, drops: %d, closed: %d, tick latency: %+v, order latency: %+v",
		m.EventCounts, m.RejectedSignals, m.OrderFailures, m.QueueDrops, m.QueueClosed, m.TickLatency, m.OrderLatency)
	return nil
}

func runFeed(ctx context.Context, cfg ops.Loaded, kind string, pairs []schema.Instrument, table *price.Table, queue *bus.Queue) error {
	if kind == feedWebSocket {
		return feed.NewWebSocket(ctx, cfg.Broker.WebSocketURL, pairs, table, queue).Run(ctx)
	}

	var opts []feed.StreamOption
	if cfg.Broker.StreamURL != "" {
		opts = append(opts, feed.WithStreamURL(cfg.Broker.StreamURL))
	}
	stream := feed.NewStream(&http.Client{}, cfg.Broker.Domain, cfg.Broker.AccountID, cfg.Broker.AccessToken, pairs, table, queue, opts...)
	return stream.Run(ctx)
}

// profilerLogger routes pyroscope output into the service log.
type profilerLogger struct{}

func (profilerLogger) Infof(format string, args ...interface{}) {
	logs.Infof(format, args...)
}

func (profilerLogger) Debugf(_ string, _ ...interface{}) {}

func (profilerLogger) Errorf(format string, args ...interface{}) {
	logs.Errorf(format, args...)
}
