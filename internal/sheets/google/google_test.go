package google

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"ledgerbook/internal/core"
	applog "ledgerbook/internal/log"
)

// fakeSheets records the Sheets API calls it receives.
type fakeSheets struct {
	mu       sync.Mutex
	existing []string
	calls    []string
	update   gsheet.ValueRange
	query    string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet:
		f.calls = append(f.calls, "get")
		ss := gsheet.Spreadsheet{}
		for _, title := range f.existing {
			ss.Sheets = append(ss.Sheets, &gsheet.Sheet{Properties: &gsheet.SheetProperties{Title: title}})
		}
		_ = json.NewEncoder(w).Encode(ss)
		return
	case strings.HasSuffix(path, ":batchUpdate"):
		f.calls = append(f.calls, "addSheet")
	case strings.HasSuffix(path, ":clear"):
		f.calls = append(f.calls, "clear")
	case r.Method == http.MethodPut:
		f.calls = append(f.calls, "update")
		f.query = r.URL.RawQuery
		_ = json.NewDecoder(r.Body).Decode(&f.update)
	default:
		http.Error(w, "unexpected "+r.Method+" "+path, http.StatusNotFound)
		return
	}
	_, _ = w.Write([]byte("{}"))
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return NewWithService(svc, "sheet-id", "Ledger ", applog.New(applog.Config{Output: &bytes.Buffer{}}))
}

func sampleLedger(t *testing.T) core.Ledger {
	t.Helper()
	in, err := core.ParseTransaction("2024-05-01", "INCOME", "salary", "1000", "")
	if err != nil {
		t.Fatal(err)
	}
	out, err := core.ParseTransaction("2024-05-02", "EXPENSE", "food", "42.50", "lunch")
	if err != nil {
		t.Fatal(err)
	}
	return core.Ledger{Account: "admin", Transactions: []core.Transaction{in, out}}
}

func TestReplaceLedgerCreatesMissingSheet(t *testing.T) {
	fake := &fakeSheets{existing: []string{"Sheet1"}}
	c := newTestClient(t, fake)

	if err := c.ReplaceLedger(context.Background(), sampleLedger(t)); err != nil {
		t.Fatalf("ReplaceLedger: %v", err)
	}

	if got := strings.Join(fake.calls, ","); got != "get,addSheet,clear,update" {
		t.Fatalf("unexpected call sequence %s", got)
	}
	if !strings.Contains(fake.query, "valueInputOption=RAW") {
		t.Fatalf("expected RAW input, got query %q", fake.query)
	}
	if len(fake.update.Values) != 4 {
		t.Fatalf("expected header, 2 rows and balance, got %v", fake.update.Values)
	}
	if fake.update.Values[0][0] != "occurred_at" || fake.update.Values[1][0] != "2024-05-02" {
		t.Fatalf("unexpected layout %v", fake.update.Values)
	}
}

func TestReplaceLedgerReusesExistingSheet(t *testing.T) {
	fake := &fakeSheets{existing: []string{"Ledger admin"}}
	c := newTestClient(t, fake)

	if err := c.ReplaceLedger(context.Background(), core.Ledger{Account: "admin"}); err != nil {
		t.Fatalf("ReplaceLedger: %v", err)
	}
	if got := strings.Join(fake.calls, ","); got != "get,clear,update" {
		t.Fatalf("unexpected call sequence %s", got)
	}
}

func TestReplaceLedgerWithoutService(t *testing.T) {
	c := &Client{}
	if err := c.ReplaceLedger(context.Background(), core.Ledger{Account: "a"}); err == nil {
		t.Fatal("expected error without service")
	}
}

func TestToValues(t *testing.T) {
	values := toValues(sampleLedger(t))

	want := [][]any{
		{"occurred_at", "kind", "category", "amount", "note"},
		{"2024-05-02", "EXPENSE", "food", 42.5, "lunch"},
		{"2024-05-01", "INCOME", "salary", 1000.0, ""},
		{"balance", "", "", 957.5, ""},
	}
	if len(values) != len(want) {
		t.Fatalf("got %d rows, want %d", len(values), len(want))
	}
	for i := range want {
		for j := range want[i] {
			if values[i][j] != want[i][j] {
				t.Errorf("cell [%d][%d] = %v, want %v", i, j, values[i][j], want[i][j])
			}
		}
	}
}

func TestSheetTitle(t *testing.T) {
	c := &Client{prefix: "Ledger "}
	if got := c.SheetTitle("admin"); got != "Ledger admin" {
		t.Fatalf("got %q", got)
	}
	if got := c.SheetTitle(strings.Repeat("x", 200)); len([]rune(got)) != maxTitleLen {
		t.Fatalf("title not truncated: %d", len(got))
	}

	long := strings.Repeat("é", 150)
	a, b := c.SheetTitle(long+"a"), c.SheetTitle(long+"b")
	if a == b {
		t.Fatalf("accounts sharing a long prefix map to the same tab %q", a)
	}
	if len([]rune(a)) != maxTitleLen || len([]rune(b)) != maxTitleLen {
		t.Fatalf("truncated titles should be %d runes: %d, %d", maxTitleLen, len([]rune(a)), len([]rune(b)))
	}
	if c.SheetTitle(long+"a") != a {
		t.Fatal("title is not stable")
	}
	if got := quoteTitle("Bob's"); got != "'Bob''s'" {
		t.Fatalf("got %q", got)
	}
}

func TestNewClientRequiresConfig(t *testing.T) {
	if _, err := NewClient(context.Background(), Config{}, nil); err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error %v", err)
	}
	_, err := NewClient(context.Background(), Config{SpreadsheetID: "id"}, nil)
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error %v", err)
	}
}
