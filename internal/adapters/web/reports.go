package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"branchpos/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type reportResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

func (h *Handler) listReports(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, reportResponse{Success: true, Data: app.ReportNames})
}

// getReport handles GET /api/reports/{name}.
func (h *Handler) getReport(w http.ResponseWriter, r *http.Request) {
	f, err := parseReportFilter(r.URL.Query())
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	data, err := h.svc.Report(r.Context(), principal(r), chi.URLParam(r, "name"), f)
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusOK, reportResponse{Success: true, Data: data})
}

// exportReport handles GET /api/reports/{name}/export and streams an .xlsx workbook.
func (h *Handler) exportReport(w http.ResponseWriter, r *http.Request) {
	f, err := parseReportFilter(r.URL.Query())
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	name := chi.URLParam(r, "name")
	table, err := h.svc.ReportTable(r.Context(), principal(r), name, f)
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}

	var buf bytes.Buffer
	if err := writeWorkbook(&buf, table); err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	filename := fmt.Sprintf("%s-%s.xlsx", name, time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

const maxSheetName = 31

// writeWorkbook renders t as a single-sheet workbook with a bold header row.
func writeWorkbook(out io.Writer, t *app.ReportTable) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := t.Title
	if len(sheet) > maxSheetName {
		sheet = sheet[:maxSheetName]
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if len(t.Columns) > 0 {
		bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return fmt.Errorf("failed to create header style: %w", err)
		}
		last, err := excelize.CoordinatesToCellName(len(t.Columns), 1)
		if err != nil {
			return fmt.Errorf("failed to address header: %w", err)
		}
		if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
			return fmt.Errorf("failed to style header: %w", err)
		}
	}

	for i, row := range t.Rows {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = cellValue(v)
		}
		start, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(sheet, start, &cells); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// cellValue turns decimals into spreadsheet numbers; everything else is written as-is.
func cellValue(v any) any {
	switch d := v.(type) {
	case decimal.Decimal:
		return d.InexactFloat64()
	case decimal.NullDecimal:
		if !d.Valid {
			return nil
		}
		return d.Decimal.InexactFloat64()
	}
	return v
}

// ── Schemas ───────────────────────────────────────────────────────────────────

func (h *Handler) listSchemas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, listResponse{Data: app.SchemaNames()})
}

// getSchema handles GET /api/schemas/{name}.
func (h *Handler) getSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := h.svc.Schema(chi.URLParam(r, "name"))
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	w.Header().Set("Content-Type", "application/schema+json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(schema)
}
