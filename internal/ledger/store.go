package ledger

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"gorm.io/gorm"

	"fxtrader/internal/schema"
)

const defaultBatchSize = 500

// Record is one (run, tick, instrument) cell of the ledger.
type Record struct {
	ID         uint64          `gorm:"primaryKey;autoIncrement"`
	RunID      string          `gorm:"column:run_id;index:idx_ledger_run_seq,priority:1;size:64;not null"`
	Seq        int64           `gorm:"column:seq;index:idx_ledger_run_seq,priority:2;not null"`
	Time       time.Time       `gorm:"column:ts;not null"`
	Balance    decimal.Decimal `gorm:"column:balance;type:numeric(20,2);not null"`
	Instrument string          `gorm:"column:instrument;size:6;not null"`
	ProfitBase decimal.Decimal `gorm:"column:profit_base;type:numeric(20,5);not null"`
	Side       string          `gorm:"column:side;size:8;not null"`
	Units      int64           `gorm:"column:units;not null"`
}

func (Record) TableName() string {
	return "ledger_rows"
}

// Store writes ledger rows to Postgres in batches.
type Store struct {
	db        *gorm.DB
	runID     string
	seq       int64
	batchSize int
	pending   []Record
}

// NewStore migrates the ledger table and returns a sink for one run.
func NewStore(db *gorm.DB, runID string, batchSize int) (*Store, error) {
	if db == nil {
		return nil, errors.New("ledger store needs a database")
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, errors.Wrap(err, "migrate ledger_rows")
	}
	return &Store{db: db, runID: runID, batchSize: batchSize}, nil
}

func (s *Store) Append(r Row) error {
	s.pending = append(s.pending, Records(s.runID, s.seq, r)...)
	s.seq++
	if len(s.pending) >= s.batchSize {
		return s.Flush()
	}
	return nil
}

// Flush inserts every pending record.
func (s *Store) Flush() error {
	if len(s.pending) == 0 {
		return nil
	}
	if err := s.db.CreateInBatches(s.pending, s.batchSize).Error; err != nil {
		return errors.Wrap(err, "insert ledger rows").With("run", s.runID).With("count", len(s.pending))
	}
	s.pending = s.pending[:0]
	return nil
}

func (s *Store) Close() error {
	return s.Flush()
}

// Rows reads a run back in tick order.
func (s *Store) Rows(runID string) ([]Row, error) {
	var records []Record
	if err := s.db.Where("run_id = ?", runID).Order("seq, id").Find(&records).Error; err != nil {
		return nil, errors.Wrap(err, "query ledger rows").With("run", runID)
	}
	return FromRecords(records), nil
}

// Records flattens a row into one record per entry.
func Records(runID string, seq int64, r Row) []Record {
	out := make([]Record, 0, len(r.Entries))
	for _, e := range r.Entries {
		side := sideNone
		if !e.Flat() {
			side = e.Side.String()
		}
		out = append(out, Record{
			RunID:      runID,
			Seq:        seq,
			Time:       r.Time,
			Balance:    r.Balance,
			Instrument: e.Instrument.String(),
			ProfitBase: e.ProfitBase,
			Side:       side,
			Units:      e.Units,
		})
	}
	return out
}

// FromRecords groups records sorted by seq back into rows.
func FromRecords(records []Record) []Row {
	var rows []Row
	last := int64(-1)
	for _, rec := range records {
		if len(rows) == 0 || rec.Seq != last {
			rows = append(rows, Row{Time: rec.Time, Balance: rec.Balance})
			last = rec.Seq
		}
		side, _ := schema.ParsePositionSide(rec.Side)
		row := &rows[len(rows)-1]
		row.Entries = append(row.Entries, Entry{
			Instrument: schema.Instrument(rec.Instrument),
			ProfitBase: rec.ProfitBase,
			Side:       side,
			Units:      rec.Units,
		})
	}
	return rows
}
