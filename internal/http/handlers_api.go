package http

import (
	"net/http"

	"mealtrack/internal/core"
	"mealtrack/internal/records"
)

type recordsResponse struct {
	Date          string        `json:"date,omitempty"`
	Records       []core.Record `json:"records"`
	Count         int           `json:"count"`
	TotalCalories int           `json:"total_calories"`
}

// handleAPIRecords lists the records of ?date=, or every record without it.
func (s *Server) handleAPIRecords(w http.ResponseWriter, r *http.Request) {
	resp := recordsResponse{}
	if r.URL.Query().Get("date") == "" {
		resp.Records = s.records.All()
		resp.TotalCalories = s.records.SumCalories(records.Any)
	} else {
		d, ok := s.dateOrBadRequest(w, r, true)
		if !ok {
			return
		}
		v := s.listView(d)
		resp.Date = core.Encode(d)
		resp.Records = v.Records
		resp.TotalCalories = v.Total
	}
	if resp.Records == nil {
		resp.Records = []core.Record{}
	}
	resp.Count = len(resp.Records)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAPITimeline(w http.ResponseWriter, r *http.Request) {
	groups := s.records.GroupByDate()
	if groups == nil {
		groups = []records.Group{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": groups})
}

func (s *Server) handleAPIGoals(w http.ResponseWriter, r *http.Request) {
	d, ok := s.dateOrBadRequest(w, r, true)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.evaluator.Evaluate(s.records, d))
}

func (s *Server) handleAPIAnalytics(w http.ResponseWriter, r *http.Request) {
	d, ok := s.dateOrBadRequest(w, r, true)
	if !ok {
		return
	}
	v := s.analyticsView(r.Context(), d)
	writeJSON(w, http.StatusOK, map[string]any{"week": v.Week, "health": v.Health})
}

func (s *Server) handleAPICalendar(w http.ResponseWriter, r *http.Request) {
	p := ParseMonthParams(r.URL.Query(), s.today())
	writeJSON(w, http.StatusOK, s.getMonth(r.Context(), p.Year, p.Month))
}
