package feed

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"fxtrader/internal/schema"
	"fxtrader/pkg/exception"
	"fxtrader/pkg/fixed"
)

// TickTimeLayout is the timestamp format of historic tick files.
const TickTimeLayout = "02.01.2006 15:04:05.000"

var tickFilePattern = regexp.MustCompile(`^([A-Z]{6})_(\d{8})\.csv$`)

// HistoricCSV replays a directory of PAIR_YYYYMMDD.csv files. Each date is
// loaded whole and the pairs are merged in time order.
type HistoricCSV struct {
	dir    string
	pairs  []schema.Instrument
	quotes Quotes

	dates []string
	files map[string][]string
	day   []schema.Tick
	next  int
}

// NewHistoricCSV lists the dates available for pairs under dir.
func NewHistoricCSV(dir string, pairs []schema.Instrument, quotes Quotes) (*HistoricCSV, error) {
	if quotes == nil {
		return nil, errors.Wrap(exception.ErrNilInstance, "historic feed quotes")
	}
	if len(pairs) == 0 {
		return nil, errors.Wrap(exception.ErrInvalidArgument, "historic feed needs at least one pair")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "read data dir").With("dir", dir)
	}

	wanted := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		wanted[p.String()] = true
	}

	files := map[string][]string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := tickFilePattern.FindStringSubmatch(e.Name())
		if m == nil || !wanted[m[1]] {
			continue
		}
		files[m[2]] = append(files[m[2]], filepath.Join(dir, e.Name()))
	}

	dates := make([]string, 0, len(files))
	for d := range files {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	logs.Infof("historic feed, dir: %s, pairs: %v, dates: %d", dir, pairs, len(dates))

	return &HistoricCSV{
		dir:    dir,
		pairs:  pairs,
		quotes: quotes,
		dates:  dates,
		files:  files,
	}, nil
}

// Dates returns the YYYYMMDD dates still to be loaded.
func (h *HistoricCSV) Dates() []string {
	return append([]string(nil), h.dates...)
}

func (h *HistoricCSV) Next(ctx context.Context) (schema.Tick, error) {
	if err := ctx.Err(); err != nil {
		return schema.Tick{}, err
	}

	for h.next >= len(h.day) {
		if len(h.dates) == 0 {
			return schema.Tick{}, exception.ErrFeedExhausted
		}
		if err := h.loadDay(); err != nil {
			return schema.Tick{}, err
		}
	}

	tick := h.day[h.next]
	h.next++

	if err := h.quotes.SetTick(tick); err != nil {
		return schema.Tick{}, errors.Wrap(err, "set quote").With("tick", tick.String())
	}
	return tick, nil
}

func (h *HistoricCSV) loadDay() error {
	date := h.dates[0]
	h.dates = h.dates[1:]

	paths := h.files[date]
	sort.Strings(paths)

	var day []schema.Tick
	for _, path := range paths {
		ticks, err := ReadTickFile(path)
		if err != nil {
			return err
		}
		day = append(day, ticks...)
	}
	sort.SliceStable(day, func(i, j int) bool {
		return day[i].Time.Before(day[j].Time)
	})

	h.day, h.next = day, 0
	return nil
}

// ReadTickFile parses one PAIR_YYYYMMDD.csv file. Rows are
// "dd.mm.yyyy HH:MM:SS.fff,bid,ask" optionally followed by volumes.
func ReadTickFile(path string) ([]schema.Tick, error) {
	m := tickFilePattern.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return nil, errors.Errorf("unexpected tick file name %s", path)
	}
	instrument := schema.Instrument(m[1])

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open tick file").With("path", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	var ticks []schema.Tick
	for line := 1; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read tick file").With("path", path).With("line", line)
		}
		tick, err := parseTickRecord(instrument, record)
		if err != nil {
			return nil, errors.Wrap(err, "parse tick").With("path", path).With("line", line)
		}
		ticks = append(ticks, tick)
	}
	return ticks, nil
}

func parseTickRecord(instrument schema.Instrument, record []string) (schema.Tick, error) {
	if len(record) < 3 {
		return schema.Tick{}, errors.Errorf("want at least 3 fields, got %d", len(record))
	}
	ts, err := time.ParseInLocation(TickTimeLayout, strings.TrimSpace(record[0]), time.UTC)
	if err != nil {
		return schema.Tick{}, errors.Wrap(err, "parse time")
	}
	bid, err := decimal.NewFromString(strings.TrimSpace(record[1]))
	if err != nil {
		return schema.Tick{}, errors.Wrap(err, "parse bid")
	}
	ask, err := decimal.NewFromString(strings.TrimSpace(record[2]))
	if err != nil {
		return schema.Tick{}, errors.Wrap(err, "parse ask")
	}
	return schema.Tick{
		Instrument: instrument,
		Time:       ts,
		Bid:        fixed.Price(bid),
		Ask:        fixed.Price(ask),
	}, nil
}
