package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"commissions/internal/core"
	applog "commissions/internal/log"
	"commissions/internal/xlsx"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleTransactionsUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file upload")
		return
	}
	defer file.Close()

	count, err := s.svc.ImportTransactions(r.Context(), file)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	s.optionsCache.Purge()

	payees, err := s.svc.Options(r.Context(), core.ByPayee)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	products, err := s.svc.Options(r.Context(), core.ByProduct)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":          count,
		"payeeOptions":   payees,
		"productOptions": products,
	})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	txs, err := s.svc.Transactions(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

func (s *Server) handleSetups(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		setups, err := s.svc.Setups(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if setups == nil {
			setups = []core.SetupRule{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"setups": setups})

	case http.MethodPost:
		var body struct {
			Setups []core.SetupRule `json:"setups"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		saved, err := s.svc.SaveSetups(r.Context(), body.Setups)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		s.optionsCache.Purge()
		if saved == nil {
			saved = []core.SetupRule{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"setups": saved})

	case http.MethodDelete:
		product := strings.TrimSpace(r.URL.Query().Get("product"))
		remaining, err := s.svc.DeleteSetup(r.Context(), product)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		s.optionsCache.Purge()
		if remaining == nil {
			remaining = []core.SetupRule{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"setups": remaining})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleSetupsUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file upload")
		return
	}
	defer file.Close()

	saved, err := s.svc.ImportSetups(r.Context(), file)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	s.optionsCache.Purge()
	writeJSON(w, http.StatusOK, map[string]any{"setups": saved})
}

func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	f, err := xlsx.WriteTemplate()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="Amortization_Template.xlsx"`)
	if err := f.Write(w); err != nil {
		s.logger.Error("Failed to stream template", applog.FieldError, err)
	}
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	result, err := s.svc.Run(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	s.resetView(result)

	skipped := result.Skipped
	if skipped == nil {
		skipped = []core.Diagnostic{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"scheduleCount": len(result.Schedule),
		"overviewCount": len(result.Overview),
		"skipped":       skipped,
	})
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var entries []core.ScheduleEntry
	var filtered bool
	s.currentView(func(v *core.ScheduleView) {
		entries = v.Schedule()
		filtered = v.IsFiltered()
	})
	if entries == nil {
		entries = []core.ScheduleEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"schedule": entries,
		"filtered": filtered,
	})
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var criteria core.FilterCriteria
	if err := json.NewDecoder(r.Body).Decode(&criteria); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var count int
	var filtered bool
	s.currentView(func(v *core.ScheduleView) {
		v.Apply(criteria)
		count = len(v.Schedule())
		filtered = v.IsFiltered()
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"scheduleCount": count,
		"filtered":      filtered,
	})
}

func (s *Server) handleFilterClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var count int
	s.currentView(func(v *core.ScheduleView) {
		v.Clear()
		count = len(v.Schedule())
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"scheduleCount": count,
		"filtered":      false,
	})
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var entries []core.OverviewEntry
	var filtered bool
	s.currentView(func(v *core.ScheduleView) {
		entries = v.Overview()
		filtered = v.IsFiltered()
	})
	if entries == nil {
		entries = []core.OverviewEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"overview": entries,
		"filtered": filtered,
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	dim := core.Dimension(strings.TrimSpace(r.URL.Query().Get("groupBy")))
	if dim == "" {
		dim = core.ByPayee
	}

	var entries []core.ScheduleEntry
	s.currentView(func(v *core.ScheduleView) {
		entries = v.Schedule()
	})

	result, err := core.Summarize(entries, dim)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var entries []core.ScheduleEntry
	s.currentView(func(v *core.ScheduleView) {
		entries = v.Schedule()
	})

	dimension := strings.TrimSpace(r.URL.Query().Get("dimension"))
	var points []core.ChartPoint
	var err error
	if dimension == "" {
		points = core.MonthlySeries(entries)
	} else {
		points, err = core.DimensionSeries(entries, core.Dimension(dimension))
		if err != nil {
			writeServiceError(w, err)
			return
		}
	}
	if points == nil {
		points = []core.ChartPoint{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"points": points})
}

func (s *Server) handleExportSchedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var entries []core.ScheduleEntry
	s.currentView(func(v *core.ScheduleView) {
		entries = v.Schedule()
	})

	filename, data, err := s.svc.ExportSchedule(entries)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if notify := strings.TrimSpace(r.URL.Query().Get("notify")); notify != "" {
		s.svc.NotifyExport(r.Context(), notify, filename, len(entries))
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if _, err := w.Write(data); err != nil {
		s.logger.Error("Failed to stream export", applog.FieldError, err)
	}
}

func (s *Server) handleExportOverview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var entries []core.OverviewEntry
	s.currentView(func(v *core.ScheduleView) {
		entries = v.Overview()
	})

	filename, data, err := s.svc.ExportOverview(entries)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if notify := strings.TrimSpace(r.URL.Query().Get("notify")); notify != "" {
		s.svc.NotifyExport(r.Context(), notify, filename, len(entries))
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if _, err := w.Write(data); err != nil {
		s.logger.Error("Failed to stream export", applog.FieldError, err)
	}
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	dimension := strings.TrimSpace(r.URL.Query().Get("dimension"))
	if cached, ok := s.optionsCache.Get(dimension); ok {
		writeJSON(w, http.StatusOK, map[string]any{"options": cached})
		return
	}

	options, err := s.svc.Options(r.Context(), core.Dimension(dimension))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if options == nil {
		options = []string{}
	}
	s.optionsCache.Set(dimension, options)
	writeJSON(w, http.StatusOK, map[string]any{"options": options})
}

func (s *Server) handleMappings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		mappings, err := s.svc.ColumnMappings(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if mappings == nil {
			mappings = []core.ColumnMapping{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"mappings": mappings})

	case http.MethodPost:
		var body struct {
			Mappings []core.ColumnMapping `json:"mappings"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := s.svc.SaveColumnMappings(r.Context(), body.Mappings); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"mappings": body.Mappings})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleFormula(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.generator == nil {
		writeError(w, http.StatusServiceUnavailable, "formula generator not configured")
		return
	}

	var body struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := s.generator.Generate(r.Context(), body.Prompt)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
