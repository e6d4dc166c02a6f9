package http

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/samber/lo"

	applog "pedidos/internal/log"
)

const recentRunsLimit = 10

type indexView struct {
	Error       string
	MaxUploadMB int64
	Runs        []runView
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded", applog.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			applog.FieldError, err, "template", name)
	}
}

func (s *Server) indexData(ctx context.Context, msg string) indexView {
	v := indexView{Error: msg, MaxUploadMB: s.maxUpload >> 20}
	runs, err := s.reports.RecentRuns(ctx, recentRunsLimit)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to list recent runs",
			applog.FieldOperation, applog.OpRead, applog.FieldError, err)
		return v
	}
	for _, run := range runs {
		v.Runs = append(v.Runs, newRunView(run))
	}
	return v
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "index.html", s.indexData(r.Context(), ""))
}

// renderError shows the upload form again with the error message.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	logError(r, status, err)
	s.render(w, r, status, "index.html", s.indexData(r.Context(), body.Error))
}

// handleUploadReport aggregates the uploaded file and redirects to its
// dashboard, so reloading the page does not upload again.
func (s *Server) handleUploadReport(w http.ResponseWriter, r *http.Request) {
	up, err := readUpload(w, r, s.maxUpload)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	sel, err := ParseSelection(r.Form)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	rep, err := s.reports.Generate(r.Context(), up, sel)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Report ready",
		applog.FieldReportID, rep.ID,
		applog.FieldUploadID, rep.UploadID,
		applog.FieldFileSize, len(up.Data),
		applog.FieldYears, rep.Result.SelectedYears,
		applog.FieldCached, rep.Cached)

	http.Redirect(w, r, dashboardURL(rep.UploadID, sel.Years), http.StatusSeeOther)
}

func dashboardURL(uploadID string, years *[]int) string {
	u := "/reports/" + url.PathEscape(uploadID)
	if years == nil {
		return u
	}
	if len(*years) == 0 {
		return u + "?years=" + yearsNone
	}
	q := url.Values{}
	q["year"] = lo.Map(*years, func(y int, _ int) string { return strconv.Itoa(y) })
	return u + "?" + q.Encode()
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sel, err := ParseSelection(r.URL.Query())
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	rep, err := s.reports.Refilter(r.Context(), r.PathValue("upload"), sel)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "report.html", newDashboardView(rep))
}

func (s *Server) handleAPIReport(w http.ResponseWriter, r *http.Request) {
	up, err := readUpload(w, r, s.maxUpload)
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	sel, err := ParseSelection(r.Form)
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	rep, err := s.reports.Generate(r.Context(), up, sel)
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleAPIRefilter(w http.ResponseWriter, r *http.Request) {
	sel, err := ParseSelection(r.URL.Query())
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	rep, err := s.reports.Refilter(r.Context(), r.PathValue("upload"), sel)
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleAPIRuns(w http.ResponseWriter, r *http.Request) {
	limit := recentRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			writeJSON(w, http.StatusBadRequest, apiError{Error: "limit must be between 1 and 100"})
			return
		}
		limit = n
	}
	runs, err := s.reports.RecentRuns(r.Context(), limit)
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			if !errors.Is(err, context.Canceled) {
				s.logger.WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			}
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
