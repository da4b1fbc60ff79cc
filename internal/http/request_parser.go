// Package http provides the HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating request data
// shared across handlers.
package http

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ReportParams holds the parsed parameters of a yearly report request.
type ReportParams struct {
	RouteIDs []string
	Year     int
	Force    bool
}

var (
	errMissingRoutes = errors.New("routes parameter is required")
	errInvalidYear   = errors.New("year must be a four digit number")
	errInvalidForce  = errors.New("force must be true or false")
)

// ParseReportParams extracts routes, year and force from query parameters.
// Routes is a comma separated list and is required; year defaults to the
// current year; force defaults to false.
func ParseReportParams(query url.Values) (ReportParams, error) {
	params := ReportParams{Year: time.Now().Year()}

	for _, raw := range strings.Split(query.Get("routes"), ",") {
		if id := strings.TrimSpace(raw); id != "" {
			params.RouteIDs = append(params.RouteIDs, id)
		}
	}
	if len(params.RouteIDs) == 0 {
		return ReportParams{}, errMissingRoutes
	}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1000 || y > 9999 {
			return ReportParams{}, errInvalidYear
		}
		params.Year = y
	}

	if v := strings.TrimSpace(query.Get("force")); v != "" {
		f, err := strconv.ParseBool(v)
		if err != nil {
			return ReportParams{}, errInvalidForce
		}
		params.Force = f
	}

	return params, nil
}

// PathSuffixID extracts the variable segment of a path shaped
// "<prefix>/{id}/<suffix>". Empty string when the path does not match.
func PathSuffixID(path, prefix, suffix string) string {
	rest, ok := strings.CutPrefix(path, prefix)
	if !ok {
		return ""
	}
	id, ok := strings.CutSuffix(rest, suffix)
	if !ok || id == "" || strings.Contains(id, "/") {
		return ""
	}
	return id
}

// RequireMethod checks the request method against the allowed set. Returns
// an error response builder when the method does not match, nil otherwise.
func RequireMethod(r *http.Request, methods ...string) *JSONResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}
