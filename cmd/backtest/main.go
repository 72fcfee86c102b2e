package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"fxtrader/internal/bus"
	"fxtrader/internal/engine"
	"fxtrader/internal/execution"
	"fxtrader/internal/feed"
	"fxtrader/internal/ledger"
	"fxtrader/internal/obs"
	"fxtrader/internal/ops"
	"fxtrader/internal/performance"
	"fxtrader/internal/portfolio"
	"fxtrader/internal/price"
	"fxtrader/internal/recorder"
	"fxtrader/internal/state"
	"fxtrader/pkg/conn"
)

const (
	ledgerFile   = "backtest.csv"
	snapshotFile = "positions.json"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON or YAML config")
	dataDir := flag.String("data-dir", "", "Historic tick directory (default: config dataDir)")
	outputDir := flag.String("output-dir", "", "Output directory (default: config outputDir)")
	walIn := flag.String("wal", "", "Replay ticks from this WAL directory instead of CSV files")
	record := flag.Bool("record", false, "Record the run into the config walDir")
	verifySnapshot := flag.String("verify-snapshot", "", "Compare final positions against this snapshot")
	verbose := flag.Bool("verbose", false, "Log every simulated order")
	flag.Parse()

	cfg, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *walIn, *record, *verifySnapshot, *verbose); err != nil {
		log.Fatalf("backtest failed: %v", err)
	}
}

func run(ctx context.Context, cfg ops.Loaded, walIn string, record bool, verifySnapshot string, verbose bool) error {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return errors.Wrap(err, "create output dir").With("dir", cfg.OutputDir)
	}

	csvSink, err := ledger.CreateCSV(filepath.Join(cfg.OutputDir, ledgerFile), cfg.Instruments)
	if err != nil {
		return err
	}
	rows := &ledger.Memory{}
	sinks := ledger.Multi{csvSink, rows}

	if opt, ok := cfg.PostgresOption(); ok {
		client, err := conn.New(opt)
		if err != nil {
			return err
		}
		defer client.Close()

		store, err := ledger.NewStore(client.DB(), runID(cfg), cfg.Postgres.BatchSize)
		if err != nil {
			return err
		}
		sinks = append(sinks, store)
	}

	table := price.NewTable(cfg.Instruments...)
	p, err := portfolio.New(cfg.Portfolio(), table, portfolio.WithLedger(sinks))
	if err != nil {
		return err
	}
	strat, err := cfg.NewStrategy()
	if err != nil {
		return err
	}

	var src feed.Source
	if walIn != "" {
		recorded, err := feed.NewRecorded(recorder.PlaybackConfig{Dir: walIn}, table)
		if err != nil {
			return err
		}
		defer recorded.Close()
		src = recorded
	} else {
		src, err = feed.NewHistoricCSV(cfg.DataDir, portfolio.FeedInstruments(cfg.HomeCurrency, cfg.Instruments), table)
		if err != nil {
			return err
		}
	}

	metrics := obs.NewMetrics()
	opts := []engine.Option{engine.WithMetrics(metrics)}

	var (
		wal    *recorder.Writer
		events *recorder.Events
	)
	if record {
		wal, err = recorder.NewWriter(recorder.DefaultConfig(cfg.WALDir))
		if err != nil {
			return err
		}
		if err := wal.Start(ctx); err != nil {
			return err
		}
		events = recorder.NewEvents(wal, recorder.SourceBacktest, obs.NewTraceGenerator(0))
		opts = append(opts, engine.WithRecorder(events))
	}

	e, err := engine.New(bus.NewQueue(cfg.QueueSize), strat, p, execution.NewSimulated(verbose), opts...)
	if err != nil {
		return err
	}

	res, runErr := e.RunReplay(ctx, src, engine.ReplayConfig{Heartbeat: cfg.Heartbeat, MaxIters: cfg.MaxIters})
	logs.Infof("backtest finished, state: %s, iterations: %d, ticks: %d, signals: %d, orders: %d, rejected: %d",
		res.State, res.Iterations, res.Ticks, res.Signals, res.Orders, res.Rejected)

	if err := p.Close(); err != nil {
		return errors.Wrap(err, "close ledger")
	}
	if wal != nil {
		if err := wal.Close(); err != nil {
			return errors.Wrap(err, "close wal")
		}
	}
	if runErr != nil {
		return runErr
	}

	points, summary := performance.Analyze(rows.Rows)
	if err := performance.WriteReport(filepath.Join(cfg.OutputDir, performance.ReportFile), points); err != nil {
		return err
	}
	summary.Log()

	at := time.Now().UTC()
	if len(points) > 0 {
		at = points[len(points)-1].Time
	}
	var lastSeq uint64
	if events != nil {
		lastSeq = events.LastSeq()
	}
	snapshot := state.FromPortfolio(p, at, lastSeq)
	if err := state.WriteSnapshot(filepath.Join(cfg.OutputDir, snapshotFile), snapshot); err != nil {
		return err
	}
	if verifySnapshot != "" {
		expected, err := state.ReadSnapshot(verifySnapshot)
		if err != nil {
			return err
		}
		if err := state.CompareSnapshots(expected, snapshot); err != nil {
			return err
		}
		logs.Infof("snapshot verified, positions: %d", len(snapshot.Positions))
	}

	m := metrics.Snapshot()
	logs.Infof("metrics, events: %v, rejected: %d, drops: %d, dispatch: %+v", m.EventCounts, m.RejectedSignals, m.QueueDrops, m.DispatchLatency)
	return nil
}

func runID(cfg ops.Loaded) string {
	if cfg.Postgres != nil && cfg.Postgres.RunID != "" {
		return cfg.Postgres.RunID
	}
	return "backtest-" + time.Now().UTC().Format("20060102T150405")
}
