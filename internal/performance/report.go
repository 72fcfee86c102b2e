package performance

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"fxtrader/internal/ledger"
)

// ReportFile is the file name written next to the ledger.
const ReportFile = "equity.csv"

var reportHeader = []string{"Timestamp", "Total", "Returns", "Equity", "Drawdown", "Duration"}

// WriteReport writes points as CSV to path.
func WriteReport(path string, points []Point) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create report").With("path", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(reportHeader); err != nil {
		return errors.Wrap(err, "write report header")
	}
	for _, p := range points {
		record := []string{
			p.Time.UTC().Format(ledger.TimeLayout),
			p.Total.StringFixed(5),
			p.Return.StringFixed(RatioPlaces),
			p.Equity.StringFixed(RatioPlaces),
			p.Drawdown.StringFixed(RatioPlaces),
			strconv.Itoa(p.Duration),
		}
		if err := w.Write(record); err != nil {
			return errors.Wrap(err, "write report row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrap(err, "flush report")
	}
	return f.Close()
}

// Log prints the summary.
func (s Summary) Log() {
	logs.Infof("performance, rows: %d, from: %s, to: %s", s.Rows, s.Start.Format(time.RFC3339), s.End.Format(time.RFC3339))
	logs.Infof("performance, start total: %s, end total: %s, total return: %s%%",
		s.StartTotal.StringFixed(2), s.EndTotal.StringFixed(2), s.TotalReturn.Shift(2).StringFixed(4))
	logs.Infof("performance, max drawdown: %s, max drawdown duration: %d ticks", s.MaxDrawdown.StringFixed(RatioPlaces), s.MaxDuration)
}
