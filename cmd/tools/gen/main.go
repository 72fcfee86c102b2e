package main

import (
	"flag"
	"log"
	"time"

	"github.com/yanun0323/logs"

	"fxtrader/internal/schema"
	"fxtrader/internal/synth"
)

func main() {
	def := synth.DefaultConfig()
	dir := flag.String("dir", "data", "Output directory for tick files")
	pair := flag.String("pair", def.Pair.String(), "Currency pair")
	year := flag.Int("year", 2018, "Year")
	month := flag.Int("month", 1, "Month (1-12)")
	months := flag.Int("months", 1, "Number of consecutive months")
	start := flag.Float64("start", def.Start, "Starting bid")
	spread := flag.Float64("spread", def.Spread, "Bid/ask spread")
	meanStep := flag.Duration("mean-step", def.MeanStep, "Mean gap between ticks")
	stdStep := flag.Duration("std-step", def.StdStep, "Gap standard deviation")
	seed := flag.Uint64("seed", def.Seed, "Random seed")
	flag.Parse()

	if *month < 1 || *month > 12 {
		log.Fatalf("month must be in 1..12")
	}
	if *months <= 0 {
		log.Fatalf("months must be > 0")
	}
	instrument, err := schema.ParseInstrument(*pair)
	if err != nil {
		log.Fatalf("invalid pair: %v", err)
	}

	g, err := synth.NewGenerator(synth.Config{
		Pair:     instrument,
		Start:    *start,
		Spread:   *spread,
		MeanStep: *meanStep,
		StdStep:  *stdStep,
		Seed:     *seed,
	})
	if err != nil {
		log.Fatalf("generator init failed: %v", err)
	}

	first := time.Date(*year, time.Month(*month), 1, 0, 0, 0, 0, time.UTC)
	var total int
	for n := range *months {
		m := first.AddDate(0, n, 0)
		paths, err := g.WriteMonth(*dir, m.Year(), m.Month())
		if err != nil {
			log.Fatalf("write %s failed: %v", m.Format("2006-01"), err)
		}
		total += len(paths)
	}
	logs.Infof("generated %d files for %s into %s", total, instrument, *dir)
}
