package backtest

import (
	"bufio"
	"encoding/json"
	"os"
	"testing"
	"time"

	"hedgefund-go/internal/portfolio"
)

func TestJSONLRecorder(t *testing.T) {
	path := t.TempDir() + "/trades.jsonl"

	recorder, err := NewJSONLRecorder(path)
	if err != nil {
		t.Fatalf("NewJSONLRecorder error: %v", err)
	}
	trade := Trade{
		Date:      time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Ticker:    "AAPL",
		Action:    portfolio.Buy,
		Requested: 10,
		Applied:   10,
		Price:     150,
	}
	recorder.Record(trade)
	if err := recorder.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open recorded file: %v", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	if !scanner.Scan() {
		t.Fatalf("expected one line in recorder output")
	}
	var decoded Trade
	if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
		t.Fatalf("json decode: %v", err)
	}
	if decoded.Ticker != trade.Ticker || decoded.Action != trade.Action || decoded.Applied != trade.Applied {
		t.Fatalf("unexpected decoded trade: %+v", decoded)
	}
}

func TestReportSave(t *testing.T) {
	path := t.TempDir() + "/out/report.json"
	report := &Report{
		Start:       time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		End:         time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
		Tickers:     []string{"AAPL"},
		InitialCash: 10000,
		Series:      []DailyValue{{Equity: 10100, Cash: 5000}},
		Summary:     Summary{TotalReturn: 0.01, TradingDays: 1, FinalEquity: 10100},
	}
	if err := report.Save(path); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved report: %v", err)
	}
	var decoded Report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json decode: %v", err)
	}
	if decoded.InitialCash != 10000 || decoded.Summary.FinalEquity != 10100 {
		t.Fatalf("unexpected decoded report: %+v", decoded)
	}
}
