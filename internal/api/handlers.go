package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/RobinCoderZhao/feedbot/internal/feedbot/store"
)

const maxArticlesLimit = 50

type categorySummary struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	APISources  int    `json:"api_sources"`
	RSSSources  int    `json:"rss_sources"`
	WebSources  int    `json:"web_sources"`
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (s *Server) handleCategories() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out := make([]categorySummary, 0, s.catalog.Len())
		for _, name := range s.catalog.Names() {
			cat, _ := s.catalog.Lookup(name)
			out = append(out, categorySummary{
				Name:        cat.Name,
				DisplayName: cat.DisplayName,
				APISources:  len(cat.API),
				RSSSources:  len(cat.RSS),
				WebSources:  len(cat.Web),
			})
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"categories": out})
	}
}

func (s *Server) handleIngest() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := strings.TrimSpace(r.URL.Query().Get("category"))
		if category == "" {
			respondError(w, http.StatusBadRequest, "category is required")
			return
		}
		maxArticles, ok := intParam(r, "max", 0)
		if !ok || maxArticles < 0 || maxArticles > maxArticlesLimit {
			respondError(w, http.StatusBadRequest, "max must be an integer between 0 and 50")
			return
		}

		res, err := s.ingester.Ingest(r.Context(), category, maxArticles)
		if res == nil {
			s.logger.Error("ingest failed", "category", category, "error", err)
			respondError(w, http.StatusInternalServerError, "ingestion failed")
			return
		}
		if err != nil {
			// The result is still usable; only archiving failed.
			s.logger.Warn("ingest archive failed", "category", category, "error", err)
		}
		if res.CatalogMiss && len(res.Articles) == 0 {
			respondError(w, http.StatusNotFound, "unknown category: "+category)
			return
		}
		respondJSON(w, http.StatusOK, res)
	}
}

func (s *Server) handleListRuns() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.runs == nil {
			respondError(w, http.StatusServiceUnavailable, "run archive is not configured")
			return
		}
		limit, ok := intParam(r, "limit", 20)
		if !ok || limit <= 0 || limit > 200 {
			respondError(w, http.StatusBadRequest, "limit must be an integer between 1 and 200")
			return
		}

		runs, err := s.runs.Recent(r.Context(), r.URL.Query().Get("category"), limit)
		if err != nil {
			s.logger.Error("list runs failed", "error", err)
			respondError(w, http.StatusInternalServerError, "failed to list runs")
			return
		}
		if runs == nil {
			runs = []store.Run{}
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
	}
}

func (s *Server) handleGetRun() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.runs == nil {
			respondError(w, http.StatusServiceUnavailable, "run archive is not configured")
			return
		}
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid run id")
			return
		}

		run, err := s.runs.Run(r.Context(), id)
		if err != nil {
			s.logger.Error("get run failed", "id", id, "error", err)
			respondError(w, http.StatusInternalServerError, "failed to load run")
			return
		}
		if run == nil {
			respondError(w, http.StatusNotFound, "run not found")
			return
		}
		respondJSON(w, http.StatusOK, run)
	}
}

// intParam reads an integer query parameter, returning def when it is absent.
func intParam(r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
