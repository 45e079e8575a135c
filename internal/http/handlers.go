package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"mealtrack/internal/analytics"
	"mealtrack/internal/core"
	"mealtrack/internal/log"
	"mealtrack/internal/metrics"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports whether the server can render views and accept records.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.records == nil || s.submitter == nil {
		checks["records"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["records"] = map[string]any{"count": s.records.Len(), "status": "ok"}
	}

	checks["cache"] = map[string]any{
		"week_entries":  s.weekCache.Len(),
		"month_entries": s.monthCache.Len(),
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	today := s.today()
	d, err := ParseDateParam(r.URL.Query(), today)
	if err != nil {
		s.logger.WarnContext(r.Context(), "Invalid date parameter, using today", log.FieldError, err.Error())
		d = today
	}

	theme := parseTheme(r)
	s.render(w, r, "index.html", IndexPage{
		Theme:      theme,
		OtherTheme: otherTheme(theme),
		Today:      core.Encode(today),
		Meals:      core.Meals,
		List:       s.listView(d),
		Stats:      s.statsView(today),
	})
}

// dateOrBadRequest parses ?date= and answers 400 when it is malformed.
func (s *Server) dateOrBadRequest(w http.ResponseWriter, r *http.Request, asJSON bool) (core.Date, bool) {
	d, err := ParseDateParam(r.URL.Query(), s.today())
	if err == nil {
		return d, true
	}
	s.logger.WarnContext(r.Context(), "Invalid date parameter", log.FieldError, err.Error(), log.FieldQuery, r.URL.RawQuery)
	if asJSON {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "date must be YYYY-MM-DD"})
	} else {
		BadRequestError("Date must be YYYY-MM-DD").Write(w)
	}
	return core.Date{}, false
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	d, ok := s.dateOrBadRequest(w, r, false)
	if !ok {
		return
	}
	s.render(w, r, "list.html", s.listView(d))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "stats.html", s.statsView(s.today()))
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	groups := s.records.GroupByDate()
	s.render(w, r, "timeline.html", TimelineView{Groups: groups, Count: s.records.Len()})
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	p := ParseMonthParams(r.URL.Query(), s.today())
	s.render(w, r, "calendar.html", calendarView(s.getMonth(r.Context(), p.Year, p.Month)))
}

func (s *Server) handleGoals(w http.ResponseWriter, r *http.Request) {
	d, ok := s.dateOrBadRequest(w, r, false)
	if !ok {
		return
	}
	s.render(w, r, "goals.html", goalsView(s.evaluator.Evaluate(s.records, d)))
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	d, ok := s.dateOrBadRequest(w, r, false)
	if !ok {
		return
	}
	s.render(w, r, "analytics.html", s.analyticsView(r.Context(), d))
}

func (s *Server) analyticsView(ctx context.Context, d core.Date) AnalyticsView {
	return AnalyticsView{
		Week:   s.getWeek(ctx, d),
		Health: analytics.BuildHealth(s.records, d),
	}
}

// handleCreateRecord accepts a form (HTMX) or JSON submission.
func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		metrics.RecordCreateFailed(metrics.ReasonBody)
		s.logger.WarnContext(r.Context(), "Parse body error",
			log.FieldError, err.Error(),
			log.FieldOperation, log.OpParse,
			log.FieldErrorType, log.ErrorTypeValidation,
			log.FieldPath, r.URL.Path)
		if wantsJSON(r, nil) || strings.HasPrefix(parser.contentType, "application/json") {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed request body"})
			return
		}
		BadRequestError("Malformed request").Write(w)
		return
	}
	asJSON := wantsJSON(r, parser)

	rec, err := s.submitter.Submit(r.Context(), parser.FormInput())
	if err != nil {
		s.writeCreateError(w, r, err, asJSON)
		return
	}

	s.invalidateViews(rec.Date)

	if asJSON {
		writeJSON(w, http.StatusCreated, rec)
		return
	}

	html, err := s.renderString("record_created.html", rec)
	if err != nil {
		s.logger.WithComponent(log.ComponentTemplate).ErrorContext(r.Context(), "Render created record failed",
			log.FieldError, err.Error(),
			log.FieldOperation, log.OpRender,
			log.FieldTemplate, "record_created.html")
		html = `<div class="success">Record saved</div>`
	}
	NewHTMXResponse().
		TriggerRecordCreated(rec).
		TriggerFormReset().
		TriggerSuccessNotification("Record saved: " + rec.Content).
		BodyHTML(html).
		Write(w)
}

func (s *Server) writeCreateError(w http.ResponseWriter, r *http.Request, err error, asJSON bool) {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		if asJSON {
			writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "invalid record", Fields: verr.Fields})
			return
		}
		html, rerr := s.renderString("form_errors.html", verr.Fields)
		if rerr != nil {
			UnprocessableEntityError(verr.Error()).Write(w)
			return
		}
		NewHTMXResponse().Status(http.StatusUnprocessableEntity).BodyHTML(html).Write(w)

	case errors.Is(err, core.ErrInvalidDateFormat):
		if asJSON {
			writeJSON(w, http.StatusUnprocessableEntity, errorBody{
				Error:  "invalid date format",
				Fields: []core.FieldError{{Field: "date", Reason: "must be YYYY-MM-DD"}},
			})
			return
		}
		UnprocessableEntityError("Invalid date: use the YYYY-MM-DD format").Write(w)

	default:
		s.logger.ErrorContext(r.Context(), "Record create failed",
			log.FieldError, err.Error(),
			log.FieldErrorType, log.ErrorTypeInternal,
			log.FieldOperation, log.OpCreate)
		if asJSON {
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: "could not save record"})
			return
		}
		InternalServerError("Could not save the record").Write(w)
	}
}
