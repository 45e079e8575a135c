package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mealtrack/internal/analytics"
	"mealtrack/internal/core"
	"mealtrack/internal/goals"
	"mealtrack/internal/log"
	"mealtrack/internal/records"
	"mealtrack/internal/seed"
	"mealtrack/internal/services"
)

var fixedToday = core.NewDate(2023, 3, 2)

func newTestServer(t *testing.T, rpm int) (*Server, *records.Store) {
	t.Helper()
	store := records.New(records.WithSeed(seed.Default()...))
	srv := NewServer(Options{
		Addr:               ":0",
		Records:            store,
		Submitter:          services.NewRecordService(store, nil, nil),
		Targets:            goals.DefaultTargets(),
		RateLimitPerMinute: rpm,
		Today:              func() core.Date { return fixedToday },
	})
	t.Cleanup(func() {
		srv.cacheManager.Stop()
		srv.rateLimiter.Stop()
	})
	return srv, store
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func postForm(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/records", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	return req
}

func postJSON(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/records", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestIndexAndHealth(t *testing.T) {
	srv, _ := newTestServer(t, 60)

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Add a meal")
	assert.Contains(t, body, "Grilled Chicken Salad")
	assert.NotContains(t, body, "Eggs Benedict", "index lists only the selected day")
	assert.Contains(t, body, `value="2023-03-02"`)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	assert.NotEmpty(t, rr.Header().Get("Content-Security-Policy"))

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := serve(srv, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"), path)
	}
}

func TestIndexDateAndTheme(t *testing.T) {
	srv, _ := newTestServer(t, 60)

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/?date=2023-03-01&theme=dark", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Eggs Benedict")
	assert.Contains(t, body, "1 Mar 2023")
	assert.Contains(t, body, `class="theme-dark"`)
	assert.Contains(t, body, "light mode")

	rr = serve(srv, httptest.NewRequest(http.MethodGet, "/?date=garbage", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Grilled Chicken Salad", "bad date falls back to today")
}

func TestCreateRecordWrongMethod(t *testing.T) {
	srv, _ := newTestServer(t, 60)
	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/records", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestCreateRecordForm(t *testing.T) {
	srv, store := newTestServer(t, 60)

	rr := serve(srv, postForm(url.Values{
		"date":     {"2023-03-02"},
		"meal":     {"Dinner"},
		"content":  {"Pasta"},
		"calories": {"700"},
		"rating":   {"4"},
	}))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Pasta")
	assert.Contains(t, rr.Body.String(), "700 cal")
	assert.Equal(t, 5, store.Len())

	var triggers map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(rr.Header().Get("HX-Trigger")), &triggers))
	assert.Contains(t, triggers, "record:created")
	assert.Contains(t, triggers, "form:reset")
	assert.Contains(t, triggers, "show-notification")

	var created struct {
		ID   int64  `json:"id"`
		Date string `json:"date"`
	}
	require.NoError(t, json.Unmarshal(triggers["record:created"], &created))
	assert.Equal(t, int64(5), created.ID)
	assert.Equal(t, "2023-03-02", created.Date)
}

func TestCreateRecordNegativeCaloriesRendersInvalid(t *testing.T) {
	srv, store := newTestServer(t, 60)

	rr := serve(srv, postForm(url.Values{
		"date": {"2023-03-02"}, "meal": {"Snack"}, "content": {"Refund"}, "calories": {"-50"},
	}))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Invalid")
	assert.Equal(t, 5, store.Len())

	rr = serve(srv, httptest.NewRequest(http.MethodGet, "/ui/list?date=2023-03-02", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Invalid")
	assert.Contains(t, rr.Body.String(), "300 cal", "negative calories are summed")
}

func TestCreateRecordValidationErrors(t *testing.T) {
	srv, store := newTestServer(t, 600)

	tests := []struct {
		name   string
		values url.Values
		want   string
	}{
		{
			name:   "missing content",
			values: url.Values{"date": {"2023-03-02"}, "meal": {"Lunch"}, "calories": {"100"}},
			want:   "content",
		},
		{
			name:   "unknown meal",
			values: url.Values{"date": {"2023-03-02"}, "meal": {"Brunch"}, "content": {"x"}, "calories": {"100"}},
			want:   "unknown meal type",
		},
		{
			name:   "non numeric calories",
			values: url.Values{"date": {"2023-03-02"}, "meal": {"Lunch"}, "content": {"x"}, "calories": {"abc"}},
			want:   "calories",
		},
		{
			name:   "rating out of range",
			values: url.Values{"date": {"2023-03-02"}, "meal": {"Lunch"}, "content": {"x"}, "calories": {"1"}, "rating": {"9"}},
			want:   "between 1 and 5",
		},
		{
			name:   "malformed date",
			values: url.Values{"date": {"03/02/2023"}, "meal": {"Lunch"}, "content": {"x"}, "calories": {"1"}},
			want:   "YYYY-MM-DD",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(srv, postForm(tt.values))
			assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.want)
			assert.Empty(t, rr.Header().Get("HX-Trigger"))
		})
	}
	assert.Equal(t, 4, store.Len(), "rejected submissions are not stored")
}

func TestCreateRecordJSON(t *testing.T) {
	srv, _ := newTestServer(t, 60)

	rr := serve(srv, postJSON(`{"date":"2023-03-05","meal":"quick add","content":"Latte","calories":180}`))
	require.Equal(t, http.StatusCreated, rr.Code)

	var rec core.Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	assert.Equal(t, int64(5), rec.ID)
	assert.Equal(t, core.QuickAdd, rec.Meal)
	assert.True(t, rec.Date.Equal(core.NewDate(2023, 3, 5)))
	assert.Equal(t, 180, rec.Calories)

	rr = serve(srv, postJSON(`{"date":"2023-13-01","meal":"Lunch","content":"x","calories":1}`))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	var eb errorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &eb))
	require.Len(t, eb.Fields, 1)
	assert.Equal(t, "date", eb.Fields[0].Field)

	rr = serve(srv, postJSON(`{"meal":`))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateRecordRateLimited(t *testing.T) {
	srv, _ := newTestServer(t, 1)
	values := url.Values{"date": {"2023-03-02"}, "meal": {"Lunch"}, "content": {"Soup"}, "calories": {"120"}}

	rr := serve(srv, postForm(values))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = serve(srv, postForm(values))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
}

func TestCreateInvalidatesCachedViews(t *testing.T) {
	srv, _ := newTestServer(t, 60)

	weekOf := func() analytics.Week {
		rr := serve(srv, httptest.NewRequest(http.MethodGet, "/api/analytics?date=2023-03-02", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		var body struct {
			Week analytics.Week `json:"week"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		return body.Week
	}
	monthTotal := func() int {
		rr := serve(srv, httptest.NewRequest(http.MethodGet, "/api/calendar?year=2023&month=3", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		var m analytics.Month
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &m))
		total := 0
		for _, c := range m.Cells {
			total += c.Calories
		}
		return total
	}

	assert.Equal(t, 1520, weekOf().TotalCalories)
	assert.Equal(t, 1520, monthTotal())
	assert.Equal(t, 1, srv.weekCache.Len())
	assert.Equal(t, 1, srv.monthCache.Len())

	rr := serve(srv, postJSON(`{"date":"2023-03-03","meal":"Lunch","content":"Wrap","calories":480}`))
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, 0, srv.weekCache.Len())
	assert.Equal(t, 0, srv.monthCache.Len())

	assert.Equal(t, 2000, weekOf().TotalCalories)
	assert.Equal(t, 2000, monthTotal())
}

func TestUIPartials(t *testing.T) {
	srv, _ := newTestServer(t, 60)

	tests := []struct {
		path string
		want []string
	}{
		{"/ui/list?date=2023-03-03", []string{"Salmon with Quinoa", "520 cal"}},
		{"/ui/stats", []string{"350", "2000", "18%"}},
		{"/ui/timeline", []string{"4 records", "3/1/2023", "3/4/2023", "4 Mar 2023"}},
		{"/ui/calendar?year=2023&month=3", []string{"Mar 2023", "month=2", "month=4", "today"}},
		{"/ui/goals?date=2023-03-02", []string{"27 Feb 2023", "350 / 2000 cal", "0 / 7 days"}},
		{"/ui/analytics?date=2023-03-02", []string{"1520 cal", "217 cal", "Mon", "Sun"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := serve(srv, httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.Equal(t, http.StatusOK, rr.Code)
			for _, w := range tt.want {
				assert.Contains(t, rr.Body.String(), w)
			}
		})
	}

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/ui/list?date=2023-02-30", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAPIRecords(t *testing.T) {
	srv, _ := newTestServer(t, 60)

	var resp recordsResponse
	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/api/records", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.Count)
	assert.Equal(t, 1520, resp.TotalCalories)
	assert.Empty(t, resp.Date)

	resp = recordsResponse{}
	rr = serve(srv, httptest.NewRequest(http.MethodGet, "/api/records?date=2023-03-04", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "2023-03-04", resp.Date)
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "Dark Chocolate", resp.Records[0].Content)

	resp = recordsResponse{}
	rr = serve(srv, httptest.NewRequest(http.MethodGet, "/api/records?date=2024-01-01", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotNil(t, resp.Records)
	assert.Zero(t, resp.Count)

	rr = serve(srv, httptest.NewRequest(http.MethodGet, "/api/records?date=nope", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAPIGoalsAndTimeline(t *testing.T) {
	srv, _ := newTestServer(t, 60)

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/api/goals?date=2023-03-02", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var rep goals.Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rep))
	assert.Equal(t, 350, rep.DailyTotal)
	assert.Equal(t, [7]int{0, 0, 450, 350, 520, 200, 0}, rep.WeeklyTotals)
	assert.InDelta(t, 17.5, rep.DailyProgress, 0.001)

	rr = serve(srv, httptest.NewRequest(http.MethodGet, "/api/timeline", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var tl struct {
		Groups []records.Group `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &tl))
	assert.Len(t, tl.Groups, 4)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, 60)
	serve(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "mealtrack_http_requests_total")
}

func TestStaticAssets(t *testing.T) {
	srv, _ := newTestServer(t, 60)
	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/static/app.css", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "public, max-age=3600", rr.Header().Get("Cache-Control"))
}

// createDuringBuild submits a record the first time a view asks for a count,
// which happens after the view has already summed calories.
type createDuringBuild struct {
	*records.Store
	once    sync.Once
	onCount func()
}

func (c *createDuringBuild) Count(pred records.Predicate) int {
	c.once.Do(c.onCount)
	return c.Store.Count(pred)
}

func TestViewBuiltDuringCreateIsNotCached(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		created string
		total   func(t *testing.T, body []byte) int
	}{
		{
			name:    "week",
			path:    "/api/analytics?date=2023-03-02",
			created: "2023-03-03",
			total: func(t *testing.T, body []byte) int {
				var v struct {
					Week analytics.Week `json:"week"`
				}
				require.NoError(t, json.Unmarshal(body, &v))
				return v.Week.TotalCalories
			},
		},
		{
			name:    "month",
			path:    "/api/calendar?year=2023&month=3",
			created: "2023-03-01",
			total: func(t *testing.T, body []byte) int {
				var m analytics.Month
				require.NoError(t, json.Unmarshal(body, &m))
				total := 0
				for _, c := range m.Cells {
					total += c.Calories
				}
				return total
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := records.New(records.WithSeed(seed.Default()...))
			reader := &createDuringBuild{Store: store}
			srv := NewServer(Options{
				Addr:               ":0",
				Records:            reader,
				Submitter:          services.NewRecordService(store, nil, nil),
				RateLimitPerMinute: 60,
				Today:              func() core.Date { return fixedToday },
			})
			t.Cleanup(func() {
				srv.cacheManager.Stop()
				srv.rateLimiter.Stop()
			})

			reader.onCount = func() {
				body := `{"date":"` + tt.created + `","meal":"Lunch","content":"Wrap","calories":480}`
				rr := serve(srv, postJSON(body))
				require.Equal(t, http.StatusCreated, rr.Code)
			}

			// The first build overlaps the create and may be torn.
			rr := serve(srv, httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.Equal(t, http.StatusOK, rr.Code)
			require.Equal(t, 5, store.Len())

			for i := 0; i < 2; i++ {
				rr = serve(srv, httptest.NewRequest(http.MethodGet, tt.path, nil))
				require.Equal(t, http.StatusOK, rr.Code)
				assert.Equal(t, 2000, tt.total(t, rr.Body.Bytes()), "read %d after the create", i+1)
			}
		})
	}
}

type failingSubmitter struct{}

func (failingSubmitter) Submit(context.Context, core.FormInput) (core.Record, error) {
	return core.Record{}, errors.New("disk on fire")
}

// logEntries decodes one JSON log entry per line.
func logEntries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		out = append(out, entry)
	}
	return out
}

func findEntry(entries []map[string]any, msg string) map[string]any {
	for _, e := range entries {
		if e["msg"] == msg {
			return e
		}
	}
	return nil
}

func TestServerLogsComponentsAndErrorTypes(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Level: slog.LevelInfo, Format: "json", Output: &buf})

	store := records.New(records.WithSeed(seed.Default()...))
	srv := NewServer(Options{
		Addr:               ":0",
		Records:            store,
		Submitter:          failingSubmitter{},
		Logger:             logger,
		RateLimitPerMinute: 1,
		Today:              func() core.Date { return fixedToday },
	})
	t.Cleanup(func() {
		srv.cacheManager.Stop()
		srv.rateLimiter.Stop()
	})

	body := `{"date":"2023-03-02","meal":"Lunch","content":"Soup","calories":120}`
	rr := serve(srv, postJSON(body))
	require.Equal(t, http.StatusInternalServerError, rr.Code)

	rr = serve(srv, postJSON(body))
	require.Equal(t, http.StatusTooManyRequests, rr.Code)

	entries := logEntries(t, &buf)

	failed := findEntry(entries, "Record create failed")
	require.NotNil(t, failed)
	assert.Equal(t, log.ErrorTypeInternal, failed[log.FieldErrorType])
	assert.Equal(t, log.OpCreate, failed[log.FieldOperation])
	assert.Equal(t, log.ComponentHTTP, failed[log.FieldComponent])
	assert.Equal(t, "disk on fire", failed[log.FieldError])

	limited := findEntry(entries, "Rate limit exceeded")
	require.NotNil(t, limited)
	assert.Equal(t, log.ComponentRateLimit, limited[log.FieldComponent])
	assert.Equal(t, "/records", limited[log.FieldPath])
}
