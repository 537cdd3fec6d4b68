package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func klineServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/klines" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
}

func TestGetKlinesParsesRows(t *testing.T) {
	server := klineServer(t, `[
		[1700000000000,"100","101","99","100.5","12.5",1700003599999,"0",0,"0","0","0"],
		[1700003600000,"100.5","102","100","101.5","8.1",1700007199999,"0",0,"0","0","0"]
	]`)
	defer server.Close()

	client := NewClient("", "", server.URL)
	klines, err := client.GetKlines(context.Background(), "BTCUSDT", "1h", 0, 0, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(klines) != 2 {
		t.Fatalf("expected 2 klines, got %d", len(klines))
	}
	first := klines[0]
	if first.OpenTime != 1700000000000 || first.CloseTime != 1700003599999 {
		t.Errorf("unexpected times: %d %d", first.OpenTime, first.CloseTime)
	}
	if first.Open != 100 || first.High != 101 || first.Low != 99 || first.Close != 100.5 {
		t.Errorf("unexpected OHLC: %+v", first)
	}
}

func TestGetKlinesToleratesMalformedRows(t *testing.T) {
	server := klineServer(t, `[
		[1700000000000,"100","101","99","100.5","12.5",1700003599999,"0",0,"0","0","0"],
		["short"],
		[],
		["bad",100,101,99,100.5,12.5,"bad"]
	]`)
	defer server.Close()

	client := NewClient("", "", server.URL)
	klines, err := client.GetKlines(context.Background(), "BTCUSDT", "1h", 0, 0, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(klines) != 2 {
		t.Fatalf("expected short rows dropped, got %d klines", len(klines))
	}
	if klines[0].OpenTime != 1700000000000 {
		t.Errorf("unexpected first open time: %d", klines[0].OpenTime)
	}
	// Wrong field types degrade to zero values instead of panicking.
	if klines[1].OpenTime != 0 || klines[1].Open != 0 {
		t.Errorf("expected zeroed malformed row, got %+v", klines[1])
	}
}

func TestGetKlinesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":-1121,"msg":"Invalid symbol."}`, http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient("", "", server.URL)
	if _, err := client.GetKlines(context.Background(), "NOPE", "1h", 0, 0, 1); err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
}
