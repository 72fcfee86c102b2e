package main

import (
	"flag"
	"log"
	"path/filepath"

	"github.com/yanun0323/logs"

	"fxtrader/internal/ledger"
	"fxtrader/internal/ops"
	"fxtrader/internal/performance"
	"fxtrader/pkg/conn"
)

func main() {
	in := flag.String("in", "output/backtest.csv", "Ledger CSV written by a run")
	out := flag.String("out", "", "Equity report path (default: next to -in)")
	configPath := flag.String("config", "", "Config with a ledger.postgres section, read rows from Postgres instead")
	runID := flag.String("run", "", "Run id to read from Postgres")
	flag.Parse()

	rows, err := readRows(*in, *configPath, *runID)
	if err != nil {
		log.Fatalf("read ledger failed: %v", err)
	}
	if len(rows) == 0 {
		log.Fatalf("ledger has no rows")
	}

	path := *out
	if path == "" {
		path = filepath.Join(filepath.Dir(*in), performance.ReportFile)
	}
	points, summary := performance.Analyze(rows)
	if err := performance.WriteReport(path, points); err != nil {
		log.Fatalf("write report failed: %v", err)
	}
	summary.Log()
	logs.Infof("report written, path: %s, rows: %d", path, len(points))
}

func readRows(in, configPath, runID string) ([]ledger.Row, error) {
	if configPath == "" {
		_, rows, err := ledger.ReadCSV(in)
		return rows, err
	}

	cfg, err := ops.Load(configPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	opt, ok := cfg.PostgresOption()
	if !ok {
		log.Fatalf("config %s has no ledger.postgres section", configPath)
	}
	if runID == "" {
		runID = cfg.Postgres.RunID
	}

	client, err := conn.New(opt)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	store, err := ledger.NewStore(client.DB(), runID, cfg.Postgres.BatchSize)
	if err != nil {
		return nil, err
	}
	return store.Rows(runID)
}
