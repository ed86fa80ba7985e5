package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"commissions/internal/formula"
	applog "commissions/internal/log"
	"commissions/internal/services"
	"commissions/internal/storage"
)

type fakeGenerator struct {
	result formula.Result
}

func (g fakeGenerator) Generate(_ context.Context, _ string) (formula.Result, error) {
	return g.result, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	svc := services.NewAmortizationService(storage.NewMemoryStore(), nil)
	gen := fakeGenerator{result: formula.Result{Formula: "totalAmount / term", IsValid: true}}
	logger := applog.New(applog.DefaultConfig())
	return NewServer(":0", svc, gen, logger, 16, time.Minute)
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return m
}

func uploadWorkbook(t *testing.T, srv *Server, path string, rows [][]any) *httptest.ResponseRecorder {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for r, cells := range rows {
		for c, v := range cells {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}
	wb, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "upload.xlsx")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(wb.Bytes()); err != nil {
		t.Fatalf("write part: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func seedAndRun(t *testing.T, srv *Server) {
	t.Helper()
	rr := uploadWorkbook(t, srv, "/api/transactions/upload", [][]any{
		{"PayeeId", "OrderId", "Product", "Total Incentive"},
		{"E1", "O1", "P1", 6000},
		{"E1", "O2", "P1", 6000},
		{"E2", "O3", "P2", 1200},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("upload status %d: %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/setups", map[string]any{
		"setups": []map[string]any{
			{"productId": "P1", "capPercent": "100", "term": 6, "frequency": "Monthly", "payrollClassification": "Deferred", "amortizationStartMonth": "2025-01-01"},
			{"productId": "P2", "capPercent": "100", "term": 12, "frequency": "Quarterly", "payrollClassification": "Deferred", "amortizationStartMonth": "2025-01-01"},
		},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("save setups status %d: %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/run", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("run status %d: %s", rr.Code, rr.Body.String())
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Errorf("%s status %d", path, rr.Code)
		}
	}
}

func TestUploadRunSchedule(t *testing.T) {
	srv := newTestServer(t)
	seedAndRun(t, srv)

	rr := doJSON(t, srv, http.MethodGet, "/api/schedule", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("schedule status %d", rr.Code)
	}
	body := decode(t, rr)
	entries := body["schedule"].([]any)
	// P1 amortizes over 6 monthly installments, P2 over 4 quarterly ones.
	if len(entries) != 10 {
		t.Fatalf("expected 10 schedule entries, got %d", len(entries))
	}
	if body["filtered"].(bool) {
		t.Error("expected unfiltered schedule after run")
	}
}

func TestUploadMissingColumns(t *testing.T) {
	srv := newTestServer(t)
	rr := uploadWorkbook(t, srv, "/api/transactions/upload", [][]any{
		{"PayeeId", "Product"},
		{"E1", "P1"},
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(decode(t, rr)["error"].(string), "missing required columns") {
		t.Error("expected missing-columns message")
	}
}

func TestRunReportsDiagnostics(t *testing.T) {
	srv := newTestServer(t)
	rr := uploadWorkbook(t, srv, "/api/transactions/upload", [][]any{
		{"PayeeId", "OrderId", "Product", "Total Incentive"},
		{"E1", "O1", "P9", 100},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("upload status %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/run", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected diagnostics in-band, got status %d", rr.Code)
	}
	body := decode(t, rr)
	if len(body["skipped"].([]any)) != 1 {
		t.Fatalf("expected 1 skipped group, got %v", body["skipped"])
	}
}

func TestFilterLifecycle(t *testing.T) {
	srv := newTestServer(t)
	seedAndRun(t, srv)

	rr := doJSON(t, srv, http.MethodPost, "/api/schedule/filter", map[string]any{
		"payeeIds": []string{"E2"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("filter status %d", rr.Code)
	}
	body := decode(t, rr)
	if int(body["scheduleCount"].(float64)) != 4 {
		t.Fatalf("expected 4 entries for E2, got %v", body["scheduleCount"])
	}

	// A second filter applies to the baseline, not the filtered set.
	rr = doJSON(t, srv, http.MethodPost, "/api/schedule/filter", map[string]any{
		"payeeIds": []string{"E1"},
	})
	body = decode(t, rr)
	if int(body["scheduleCount"].(float64)) != 6 {
		t.Fatalf("expected 6 entries for E1, got %v", body["scheduleCount"])
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/schedule/filter/clear", nil)
	body = decode(t, rr)
	if int(body["scheduleCount"].(float64)) != 10 {
		t.Fatalf("expected full baseline after clear, got %v", body["scheduleCount"])
	}
}

func TestSummaryEndpoint(t *testing.T) {
	srv := newTestServer(t)
	seedAndRun(t, srv)

	rr := doJSON(t, srv, http.MethodGet, "/api/summary?groupBy=payeeId", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("summary status %d", rr.Code)
	}
	body := decode(t, rr)
	rows := body["rows"].([]any)
	if len(rows) != 2 {
		t.Fatalf("expected 2 summary rows, got %d", len(rows))
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/summary?groupBy=nonsense", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad dimension, got %d", rr.Code)
	}
}

func TestChartEndpoint(t *testing.T) {
	srv := newTestServer(t)
	seedAndRun(t, srv)

	rr := doJSON(t, srv, http.MethodGet, "/api/chart", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("chart status %d", rr.Code)
	}
	points := decode(t, rr)["points"].([]any)
	if len(points) == 0 {
		t.Fatal("expected chart points")
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/chart?dimension=productId", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("dimension chart status %d", rr.Code)
	}
	if len(decode(t, rr)["points"].([]any)) != 2 {
		t.Fatal("expected one point per product")
	}
}

func TestSetupsDelete(t *testing.T) {
	srv := newTestServer(t)
	seedAndRun(t, srv)

	req := httptest.NewRequest(http.MethodDelete, "/api/setups?product=P1", nil)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status %d", rr.Code)
	}
	setups := decode(t, rr)["setups"].([]any)
	if len(setups) != 1 {
		t.Fatalf("expected 1 remaining setup, got %d", len(setups))
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/setups", nil)
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing product, got %d", rr.Code)
	}
}

func TestTemplateDownload(t *testing.T) {
	srv := newTestServer(t)
	rr := doJSON(t, srv, http.MethodGet, "/api/template", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("template status %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("unexpected content type %q", ct)
	}
	if !strings.Contains(rr.Header().Get("Content-Disposition"), "Amortization_Template.xlsx") {
		t.Error("expected template filename in disposition header")
	}
}

func TestExportSchedule(t *testing.T) {
	srv := newTestServer(t)
	seedAndRun(t, srv)

	rr := doJSON(t, srv, http.MethodGet, "/api/export/schedule", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("export status %d", rr.Code)
	}
	if !strings.Contains(rr.Header().Get("Content-Disposition"), "Amortization_Schedule_") {
		t.Error("expected dated export filename")
	}
	if rr.Body.Len() == 0 {
		t.Error("expected workbook bytes")
	}
}

func TestExportOverview(t *testing.T) {
	srv := newTestServer(t)
	seedAndRun(t, srv)

	rr := doJSON(t, srv, http.MethodGet, "/api/export/overview", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("export status %d", rr.Code)
	}
	if !strings.Contains(rr.Header().Get("Content-Disposition"), "Amortization_Overview_") {
		t.Error("expected dated export filename")
	}
	if rr.Body.Len() == 0 {
		t.Error("expected workbook bytes")
	}
}

func TestOptionsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	seedAndRun(t, srv)

	rr := doJSON(t, srv, http.MethodGet, "/api/options?dimension=payeeId", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("options status %d", rr.Code)
	}
	options := decode(t, rr)["options"].([]any)
	if len(options) != 2 {
		t.Fatalf("expected 2 payee options, got %v", options)
	}

	// Second request hits the cache and returns the same values.
	rr = doJSON(t, srv, http.MethodGet, "/api/options?dimension=payeeId", nil)
	if len(decode(t, rr)["options"].([]any)) != 2 {
		t.Fatal("expected cached options to match")
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/options?dimension=orderId", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported dimension, got %d", rr.Code)
	}
}

func TestMappingsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/mappings", map[string]any{
		"mappings": []map[string]string{
			{"sourceColumn": "Employee", "targetField": "PayeeId"},
		},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("save mappings status %d: %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/mappings", nil)
	mappings := decode(t, rr)["mappings"].([]any)
	if len(mappings) != 1 {
		t.Fatalf("expected 1 mapping, got %d", len(mappings))
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/mappings", map[string]any{
		"mappings": []map[string]string{{"sourceColumn": "", "targetField": "PayeeId"}},
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for incomplete mapping, got %d", rr.Code)
	}
}

func TestFormulaEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/formula", map[string]string{
		"prompt": "split the total evenly over the term",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("formula status %d", rr.Code)
	}
	body := decode(t, rr)
	if body["formula"].(string) != "totalAmount / term" {
		t.Errorf("unexpected formula %v", body["formula"])
	}
	if !body["isValid"].(bool) {
		t.Error("expected valid result")
	}
}

func TestFormulaUnavailable(t *testing.T) {
	svc := services.NewAmortizationService(storage.NewMemoryStore(), nil)
	logger := applog.New(applog.DefaultConfig())
	srv := NewServer(":0", svc, nil, logger, 16, time.Minute)

	rr := doJSON(t, srv, http.MethodPost, "/api/formula", map[string]string{"prompt": "anything"})
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a generator, got %d", rr.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)
	rr := doJSON(t, srv, http.MethodDelete, "/api/run", nil)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}
