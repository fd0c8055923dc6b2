package backtest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"hedgefund-go/internal/portfolio"
)

// Trade is one applied decision, as recorded for later analysis.
type Trade struct {
	Date        time.Time        `json:"date"`
	Ticker      string           `json:"ticker"`
	Action      portfolio.Action `json:"action"`
	Requested   int              `json:"requested"`
	Applied     int              `json:"applied"`
	Price       float64          `json:"price"`
	RealizedPnL float64          `json:"realized_pnl"`
}

// Report is the full output of a run: the daily series, the trades that
// were applied, and the summary statistics.
type Report struct {
	Start       time.Time          `json:"start"`
	End         time.Time          `json:"end"`
	Tickers     []string           `json:"tickers"`
	InitialCash float64            `json:"initial_cash"`
	Final       portfolio.Snapshot `json:"final"`
	Series      []DailyValue       `json:"series"`
	Trades      []Trade            `json:"trades"`
	Summary     Summary            `json:"summary"`
}

// Save writes the report as indented JSON, creating parent directories.
func (r *Report) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Recorder receives trades as the engine applies them.
type Recorder interface {
	Record(trade Trade)
}

// JSONLRecorder appends trades as JSON lines for later analysis.
type JSONLRecorder struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewJSONLRecorder creates/opens the target file and returns a recorder.
func NewJSONLRecorder(path string) (*JSONLRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONLRecorder{
		file: file,
		enc:  json.NewEncoder(file),
	}, nil
}

// Record writes a single trade to the underlying JSONL file.
func (r *JSONLRecorder) Record(trade Trade) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.enc.Encode(trade)
}

// Close flushes and closes the file handle.
func (r *JSONLRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
