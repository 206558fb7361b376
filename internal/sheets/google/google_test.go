package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/log"
	ports "fintrack/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// fakeSheets emulates the subset of the Sheets v4 API the exporter uses.
type fakeSheets struct {
	mu      sync.Mutex
	tabs    []string
	cleared []string
	written map[string][][]any
	calls   []string
	failOn  string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	var op string
	switch {
	case r.Method == http.MethodGet && path == "/v4/spreadsheets/sid":
		op = "get"
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		op = "batchUpdate"
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
		op = "clear"
	case r.Method == http.MethodPut && strings.Contains(path, "/values/"):
		op = "update"
	default:
		http.Error(w, "unexpected "+r.Method+" "+path, http.StatusNotFound)
		return
	}
	f.calls = append(f.calls, op)
	if op == f.failOn {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"code":500,"message":"backend error"}}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch op {
	case "get":
		resp := gsheet.Spreadsheet{SpreadsheetId: "sid"}
		for _, t := range f.tabs {
			resp.Sheets = append(resp.Sheets, &gsheet.Sheet{Properties: &gsheet.SheetProperties{Title: t}})
		}
		_ = json.NewEncoder(w).Encode(resp)
	case "batchUpdate":
		var req gsheet.BatchUpdateSpreadsheetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, rq := range req.Requests {
			if rq.AddSheet != nil {
				f.tabs = append(f.tabs, rq.AddSheet.Properties.Title)
			}
		}
		_, _ = w.Write([]byte(`{"spreadsheetId":"sid"}`))
	case "clear":
		rng := strings.TrimSuffix(strings.TrimPrefix(path, "/v4/spreadsheets/sid/values/"), ":clear")
		f.cleared = append(f.cleared, rng)
		_, _ = w.Write([]byte(`{"spreadsheetId":"sid"}`))
	case "update":
		if got := r.URL.Query().Get("valueInputOption"); got != "RAW" {
			http.Error(w, "valueInputOption="+got, http.StatusBadRequest)
			return
		}
		var vr gsheet.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rng := strings.TrimPrefix(path, "/v4/spreadsheets/sid/values/")
		if f.written == nil {
			f.written = make(map[string][][]any)
		}
		f.written[rng] = vr.Values
		_, _ = w.Write([]byte(`{"spreadsheetId":"sid"}`))
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), "sid", log.Discard(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func sampleRows() []ports.Row {
	return []ports.Row{
		{Date: core.NewDate(2024, 3, 1), Description: "Salary", Type: core.Income, Category: core.CategorySalary, Amount: 1000, Payment: "Checking"},
		{Date: core.NewDate(2024, 3, 15), Description: "=SUM(A1)", Type: core.Expense, Category: "Food", Amount: 12.5, Recurring: true},
	}
}

func TestExportMonth_CreatesMissingTab(t *testing.T) {
	fake := &fakeSheets{tabs: []string{"2024-02"}}
	c := newTestClient(t, fake)

	if err := c.ExportMonth(context.Background(), core.YearMonth{Year: 2024, Month: 3}, sampleRows()); err != nil {
		t.Fatalf("ExportMonth: %v", err)
	}

	if got := strings.Join(fake.calls, ","); got != "get,batchUpdate,clear,update" {
		t.Errorf("calls = %s", got)
	}
	if len(fake.tabs) != 2 || fake.tabs[1] != "2024-03" {
		t.Errorf("tabs = %v", fake.tabs)
	}
	if len(fake.cleared) != 1 || fake.cleared[0] != "'2024-03'!A:H" {
		t.Errorf("cleared = %v", fake.cleared)
	}
	values := fake.written["'2024-03'!A1"]
	if len(values) != 3 {
		t.Fatalf("written rows = %d, want header + 2", len(values))
	}
	if values[0][0] != "Date" || values[2][1] != "=SUM(A1)" || values[2][7] != "yes" {
		t.Errorf("unexpected values: %v", values)
	}
	if amount, ok := values[1][4].(float64); !ok || amount != 1000 {
		t.Errorf("amount = %#v, want numeric 1000", values[1][4])
	}
}

func TestExportMonth_ReusesExistingTab(t *testing.T) {
	fake := &fakeSheets{tabs: []string{"2024-03"}}
	c := newTestClient(t, fake)

	if err := c.ExportMonth(context.Background(), core.YearMonth{Year: 2024, Month: 3}, nil); err != nil {
		t.Fatalf("ExportMonth: %v", err)
	}
	if got := strings.Join(fake.calls, ","); got != "get,clear,update" {
		t.Errorf("calls = %s", got)
	}
	if values := fake.written["'2024-03'!A1"]; len(values) != 1 {
		t.Errorf("empty month should write only the header, got %v", values)
	}
}

func TestExportMonth_Errors(t *testing.T) {
	tests := []struct {
		name    string
		failOn  string
		ym      core.YearMonth
		wantErr string
	}{
		{"invalid month", "", core.YearMonth{Year: 2024, Month: 13}, "invalid month"},
		{"read fails", "get", core.YearMonth{Year: 2024, Month: 3}, "read spreadsheet"},
		{"clear fails", "clear", core.YearMonth{Year: 2024, Month: 3}, "clear"},
		{"write fails", "update", core.YearMonth{Year: 2024, Month: 3}, "write"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeSheets{tabs: []string{"2024-03"}, failOn: tt.failOn}
			c := newTestClient(t, fake)
			err := c.ExportMonth(context.Background(), tt.ym, sampleRows())
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestExportMonth_NilService(t *testing.T) {
	c := &Client{spreadsheetID: "sid", logger: log.Discard()}
	if err := c.ExportMonth(context.Background(), core.YearMonth{Year: 2024, Month: 1}, nil); err == nil {
		t.Fatal("expected error for uninitialised service")
	}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), "  ", nil)
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCredentialsFromEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sa.json")
	if err := os.WriteFile(file, []byte(`{"type":"service_account"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		env     map[string]string
		want    string
		wantErr bool
	}{
		{"inline json", map[string]string{"GOOGLE_SERVICE_ACCOUNT_JSON": `{"inline":true}`}, `{"inline":true}`, false},
		{"file", map[string]string{"GOOGLE_SERVICE_ACCOUNT_FILE": file}, `{"type":"service_account"}`, false},
		{"application default path", map[string]string{"GOOGLE_APPLICATION_CREDENTIALS": file}, `{"type":"service_account"}`, false},
		{"missing file", map[string]string{"GOOGLE_SERVICE_ACCOUNT_FILE": filepath.Join(dir, "nope.json")}, "", true},
		{"nothing set", nil, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"GOOGLE_SERVICE_ACCOUNT_JSON", "GOOGLE_SERVICE_ACCOUNT_FILE", "GOOGLE_APPLICATION_CREDENTIALS"} {
				t.Setenv(k, tt.env[k])
			}
			got, err := credentialsFromEnv(context.Background(), log.Discard())
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if string(got) != tt.want {
				t.Errorf("credentials = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHasTab(t *testing.T) {
	sheets := []*gsheet.Sheet{nil, {Properties: &gsheet.SheetProperties{Title: " 2024-01 "}}}
	if !hasTab(sheets, "2024-01") {
		t.Error("expected tab to be found")
	}
	if hasTab(sheets, "2024-02") {
		t.Error("unexpected tab")
	}
}
