// Package http provides the HTML views and JSON API over net/http.
//
// This file implements utilities for parsing and validating HTTP request data:
// date and month query parameters, and submissions sent either as JSON or as
// form-encoded bodies (HTMX).
package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"mealtrack/internal/core"
)

// maxBodyBytes caps a record submission.
const maxBodyBytes = 64 << 10

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseDateParam reads the YYYY-MM-DD "date" parameter. An absent value
// yields today; a malformed one is an error wrapping core.ErrInvalidDateFormat.
func ParseDateParam(query url.Values, today core.Date) (core.Date, error) {
	v := strings.TrimSpace(query.Get("date"))
	if v == "" {
		return today, nil
	}
	return core.Decode(v)
}

// ParseMonthParams extracts year and month from query parameters, using
// today's month as the default. A month outside 1..12 falls back to the
// default month.
func ParseMonthParams(query url.Values, today core.Date) MonthParams {
	params := MonthParams{Year: today.Year(), Month: today.Month()}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil && y > 0 && y < 10000 {
			params.Year = y
		}
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m >= 1 && m <= 12 {
			params.Month = m
		}
	}
	return params
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(r.Body)
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if strings.HasPrefix(p.contentType, "application/json") || p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.jsonData = nil
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// FormInput collects the record fields of the body.
func (p *RequestBodyParser) FormInput() core.FormInput {
	return core.FormInput{
		Date:     p.Get("date"),
		Meal:     p.Get("meal"),
		Content:  p.Get("content"),
		Calories: p.Get("calories"),
		Rating:   p.Get("rating"),
		Notes:    p.Get("notes"),
	}
}

// stringValue converts a decoded JSON value to string.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// wantsJSON reports whether the client asked for a JSON response.
func wantsJSON(r *http.Request, p *RequestBodyParser) bool {
	if p != nil && p.IsJSON() {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json") && r.Header.Get("HX-Request") == ""
}
