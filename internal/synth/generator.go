// Package synth writes random-walk tick files in the historic CSV layout.
package synth

import (
	"bufio"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"fxtrader/internal/feed"
	"fxtrader/internal/schema"
)

// Config describes one synthetic pair.
type Config struct {
	Pair   schema.Instrument
	Start  float64
	Spread float64
	// MeanStep and StdStep shape the gaussian gap between ticks.
	MeanStep time.Duration
	StdStep  time.Duration
	Seed     uint64
}

// DefaultConfig is a GBPUSD walk from 1.5 with a 20 pip spread and a tick
// roughly every 1.4 seconds.
func DefaultConfig() Config {
	return Config{
		Pair:     schema.MustInstrument("GBPUSD"),
		Start:    1.5,
		Spread:   0.002,
		MeanStep: 1400 * time.Millisecond,
		StdStep:  100 * time.Millisecond,
		Seed:     42,
	}
}

// Generator keeps the walk state across days so consecutive files continue
// from the last price.
type Generator struct {
	cfg      Config
	rng      *rand.Rand
	bid, ask float64
}

func NewGenerator(cfg Config) (*Generator, error) {
	switch {
	case cfg.Pair == "":
		return nil, errors.New("synthetic pair is empty")
	case cfg.Start <= 0 || cfg.Spread < 0 || cfg.Spread >= cfg.Start:
		return nil, errors.Errorf("synthetic start %v spread %v", cfg.Start, cfg.Spread)
	case cfg.MeanStep <= 0 || cfg.StdStep < 0:
		return nil, errors.Errorf("synthetic step mean %s std %s", cfg.MeanStep, cfg.StdStep)
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		bid: cfg.Start - cfg.Spread/2,
		ask: cfg.Start + cfg.Spread/2,
	}, nil
}

// step returns the gap to the next tick, never shorter than a millisecond.
func (g *Generator) step() time.Duration {
	ns := math.Abs(g.rng.NormFloat64()*float64(g.cfg.StdStep) + float64(g.cfg.MeanStep))
	d := time.Duration(ns).Truncate(time.Millisecond)
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return d
}

// WriteDay writes the ticks of date to w and returns how many were written.
func (g *Generator) WriteDay(w io.Writer, date time.Time) (int, error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	end := day.AddDate(0, 0, 1)

	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 64)
	n := 0
	now := day
	for {
		dt := g.step()
		now = now.Add(dt)
		if !now.Before(end) {
			break
		}

		drift := g.rng.NormFloat64() * dt.Seconds() / 86400.0
		if g.bid+drift > 0 {
			g.bid += drift
			g.ask += drift
		}

		buf = buf[:0]
		buf = now.AppendFormat(buf, feed.TickTimeLayout)
		buf = append(buf, ',')
		buf = strconv.AppendFloat(buf, g.bid, 'f', 5, 64)
		buf = append(buf, ',')
		buf = strconv.AppendFloat(buf, g.ask, 'f', 5, 64)
		buf = append(buf, ',')
		buf = strconv.AppendFloat(buf, 1+g.rng.Float64()*2, 'f', 2, 64)
		buf = append(buf, ',')
		buf = strconv.AppendFloat(buf, 1+g.rng.Float64()*2, 'f', 2, 64)
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return n, errors.Wrap(err, "write tick")
		}
		n++
	}
	if err := bw.Flush(); err != nil {
		return n, errors.Wrap(err, "flush ticks")
	}
	return n, nil
}

// WriteMonth writes one PAIR_YYYYMMDD.csv per weekday of the month into dir
// and returns the file paths.
func (g *Generator) WriteMonth(dir string, year int, month time.Month) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "mkdir").With("dir", dir)
	}

	var paths []string
	for _, date := range MonthWeekdays(year, month) {
		path := filepath.Join(dir, FileName(g.cfg.Pair, date))
		f, err := os.Create(path)
		if err != nil {
			return paths, errors.Wrap(err, "create tick file").With("path", path)
		}
		n, err := g.WriteDay(f, date)
		if cerr := f.Close(); err == nil && cerr != nil {
			err = errors.Wrap(cerr, "close tick file")
		}
		if err != nil {
			return paths, err
		}
		logs.Infof("generated %s, ticks: %d", filepath.Base(path), n)
		paths = append(paths, path)
	}
	return paths, nil
}

// FileName is the historic feed file name of pair on date.
func FileName(pair schema.Instrument, date time.Time) string {
	return pair.String() + "_" + date.Format("20060102") + ".csv"
}

// MonthWeekdays lists Monday to Friday dates of a month in UTC.
func MonthWeekdays(year int, month time.Month) []time.Time {
	var days []time.Time
	for d := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC); d.Month() == month; d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			days = append(days, d)
		}
	}
	return days
}
