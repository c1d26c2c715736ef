package ui

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"mcsim/domain/core"
	"mcsim/domain/run"
	"mcsim/internal/errors"
	"mcsim/internal/report"
)

const indexLimit = 50

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	runs, err := a.service.List(r.Context(), indexLimit)
	if err != nil {
		http.Error(w, err.Error(), errors.HTTPStatus(err))
		return
	}
	a.renderTemplate(w, "runs.html", map[string]interface{}{"Runs": runs})
}

func (a *App) handleReport(w http.ResponseWriter, r *http.Request) {
	result, ok := a.loadRun(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(report.HTML(result))
}

func (a *App) handleReportMarkdown(w http.ResponseWriter, r *http.Request) {
	result, ok := a.loadRun(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write(report.Markdown(result))
}

func (a *App) loadRun(w http.ResponseWriter, r *http.Request) (*run.Result, bool) {
	id, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	result, err := a.service.Get(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), errors.HTTPStatus(err))
		return nil, false
	}
	return result, true
}
