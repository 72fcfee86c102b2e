package ledger

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"

	"fxtrader/internal/schema"
	"fxtrader/pkg/fixed"
)

const (
	// TimeLayout is the timestamp column format.
	TimeLayout = "2006-01-02 15:04:05.000"

	colTimestamp = "Timestamp"
	colBalance   = "Balance"
	suffixPnL    = "_PnL"
	suffixSide   = "_Side"
	suffixUnits  = "_Units"

	sideNone = "none"
	flatPnL  = "0.00"
)

// Header lists the columns for the given instruments.
func Header(instruments []schema.Instrument) []string {
	h := make([]string, 0, 2+3*len(instruments))
	h = append(h, colTimestamp, colBalance)
	for _, i := range instruments {
		h = append(h, i.String()+suffixPnL, i.String()+suffixSide, i.String()+suffixUnits)
	}
	return h
}

// CSVWriter writes rows as CSV. Rows must carry entries in header order.
type CSVWriter struct {
	file        *os.File
	buf         *bufio.Writer
	w           *csv.Writer
	instruments []schema.Instrument
}

// CreateCSV truncates path and writes the header.
func CreateCSV(path string, instruments []schema.Instrument) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "create ledger %s", path)
	}

	buf := bufio.NewWriter(f)
	w := &CSVWriter{
		file:        f,
		buf:         buf,
		w:           csv.NewWriter(buf),
		instruments: instruments,
	}
	if err := w.w.Write(Header(instruments)); err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, "write ledger header")
	}
	return w, nil
}

func (c *CSVWriter) Append(r Row) error {
	if len(r.Entries) != len(c.instruments) {
		return errors.Errorf("ledger row has %d entries, header has %d", len(r.Entries), len(c.instruments))
	}
	return c.w.Write(formatRow(r))
}

// Flush pushes buffered rows to the file.
func (c *CSVWriter) Flush() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return errors.Wrap(err, "flush ledger csv")
	}
	return c.buf.Flush()
}

func (c *CSVWriter) Close() error {
	if err := c.Flush(); err != nil {
		_ = c.file.Close()
		return err
	}
	return c.file.Close()
}

func formatRow(r Row) []string {
	rec := make([]string, 0, 2+3*len(r.Entries))
	rec = append(rec, r.Time.UTC().Format(TimeLayout), r.Balance.StringFixed(fixed.CashPlaces))
	for _, e := range r.Entries {
		if e.Flat() {
			rec = append(rec, flatPnL, sideNone, "0")
			continue
		}
		rec = append(rec,
			e.ProfitBase.StringFixed(fixed.PricePlaces),
			e.Side.String(),
			strconv.FormatInt(e.Units, 10),
		)
	}
	return rec
}

// ReadCSV loads a ledger file written by CSVWriter.
func ReadCSV(path string) ([]schema.Instrument, []Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open ledger %s", path)
	}
	defer f.Close()

	return DecodeCSV(f)
}

// DecodeCSV parses ledger CSV from r.
func DecodeCSV(r io.Reader) ([]schema.Instrument, []Row, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	header, err := cr.Read()
	if err != nil {
		return nil, nil, errors.Wrap(err, "read ledger header")
	}

	instruments, err := parseHeader(header)
	if err != nil {
		return nil, nil, err
	}

	var rows []Row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, errors.Wrapf(err, "read ledger line %d", line)
		}

		row, err := parseRow(rec, instruments)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "parse ledger line %d", line)
		}
		rows = append(rows, row)
	}
	return instruments, rows, nil
}

func parseHeader(h []string) ([]schema.Instrument, error) {
	if len(h) < 2 || h[0] != colTimestamp || h[1] != colBalance || (len(h)-2)%3 != 0 {
		return nil, errors.Errorf("unexpected ledger header %v", h)
	}

	instruments := make([]schema.Instrument, 0, (len(h)-2)/3)
	for c := 2; c < len(h); c += 3 {
		name, ok := strings.CutSuffix(h[c], suffixPnL)
		if !ok {
			return nil, errors.Errorf("unexpected ledger column %q", h[c])
		}
		i, err := schema.ParseInstrument(name)
		if err != nil {
			return nil, err
		}
		instruments = append(instruments, i)
	}
	return instruments, nil
}

func parseRow(rec []string, instruments []schema.Instrument) (Row, error) {
	if len(rec) != 2+3*len(instruments) {
		return Row{}, errors.Errorf("expected %d columns, got %d", 2+3*len(instruments), len(rec))
	}

	ts, err := time.Parse(TimeLayout, rec[0])
	if err != nil {
		return Row{}, errors.Wrap(err, "timestamp")
	}
	balance, err := decimal.NewFromString(rec[1])
	if err != nil {
		return Row{}, errors.Wrap(err, "balance")
	}

	row := Row{Time: ts, Balance: balance, Entries: make([]Entry, len(instruments))}
	for n, i := range instruments {
		c := 2 + 3*n
		pnl, err := decimal.NewFromString(rec[c])
		if err != nil {
			return Row{}, errors.Wrapf(err, "%s pnl", i)
		}
		units, err := strconv.ParseInt(rec[c+2], 10, 64)
		if err != nil {
			return Row{}, errors.Wrapf(err, "%s units", i)
		}
		side, _ := schema.ParsePositionSide(rec[c+1])
		row.Entries[n] = Entry{Instrument: i, ProfitBase: pnl, Side: side, Units: units}
	}
	return row, nil
}
