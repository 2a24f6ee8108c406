package api

import (
	"fmt"
	"time"
)

// Severity levels accepted by the search endpoints.
const (
	SeverityCritical = "CRITICAL"
	SeverityHigh     = "HIGH"
	SeverityMedium   = "MEDIUM"
	SeverityLow      = "LOW"
)

// SearchFilter is the body of POST /cve/search/advanced.
// Zero values are omitted so the backend applies its own defaults.
type SearchFilter struct {
	CVSSMin     *float64 `json:"cvss_min,omitempty"`
	CVSSMax     *float64 `json:"cvss_max,omitempty"`
	HasExploit  *bool    `json:"has_exploit,omitempty"`
	Query       string   `json:"query,omitempty"`
	SearchType  string   `json:"search_type,omitempty"` // local, nvd, both
	DateFrom    string   `json:"date_from,omitempty"`   // YYYY-MM-DD
	DateTo      string   `json:"date_to,omitempty"`     // YYYY-MM-DD
	Vendor      string   `json:"vendor,omitempty"`
	Product     string   `json:"product,omitempty"`
	SortBy      string   `json:"sort_by,omitempty"`
	SortOrder   string   `json:"sort_order,omitempty"`
	Severity    []string `json:"severity,omitempty"`
	CWEIDs      []string `json:"cwe_ids,omitempty"`
	Limit       int      `json:"limit,omitempty"`
	Offset      int      `json:"offset,omitempty"`
	ExactMatch  bool     `json:"exact_match,omitempty"`
	WithDetails bool     `json:"include_details,omitempty"`
	WithRefs    bool     `json:"include_references,omitempty"`
}

// Validate checks the ranges the backend enforces, so obviously bad filters
// fail before a round trip.
func (f SearchFilter) Validate() error {
	if f.Limit < 0 || f.Limit > 100 {
		return fmt.Errorf("limit must be between 1 and 100, got %d", f.Limit)
	}
	if f.Offset < 0 {
		return fmt.Errorf("offset must not be negative, got %d", f.Offset)
	}
	for _, v := range []*float64{f.CVSSMin, f.CVSSMax} {
		if v != nil && (*v < 0 || *v > 10) {
			return fmt.Errorf("cvss score must be between 0 and 10, got %v", *v)
		}
	}
	if f.CVSSMin != nil && f.CVSSMax != nil && *f.CVSSMin > *f.CVSSMax {
		return fmt.Errorf("cvss_min %v is greater than cvss_max %v", *f.CVSSMin, *f.CVSSMax)
	}
	for _, d := range []string{f.DateFrom, f.DateTo} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(time.DateOnly, d); err != nil {
			return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", d)
		}
	}
	switch f.SortOrder {
	case "", "asc", "desc":
	default:
		return fmt.Errorf("sort order must be asc or desc, got %q", f.SortOrder)
	}
	return nil
}

// Quick filter presets offered next to the search box.
const (
	PresetCritical    = "critical"
	PresetRecent      = "recent"
	PresetHighCVSS    = "high-cvss"
	PresetExploitable = "exploitable"
)

const presetLimit = 25

// PresetFilter builds the filter behind a quick filter button.
// now is used by the "recent" preset (last 7 days).
func PresetFilter(name string, now time.Time) (SearchFilter, error) {
	switch name {
	case PresetCritical:
		return SearchFilter{Severity: []string{SeverityCritical}, Limit: presetLimit}, nil
	case PresetRecent:
		weekAgo := now.AddDate(0, 0, -7)
		return SearchFilter{DateFrom: weekAgo.UTC().Format(time.DateOnly), Limit: presetLimit}, nil
	case PresetHighCVSS:
		minScore := 8.0
		return SearchFilter{CVSSMin: &minScore, Limit: presetLimit}, nil
	case PresetExploitable:
		yes := true
		return SearchFilter{HasExploit: &yes, Limit: presetLimit}, nil
	default:
		return SearchFilter{}, fmt.Errorf("unknown preset %q", name)
	}
}

// SavedSearchRequest is the body of POST /cve/search/save.
type SavedSearchRequest struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Parameters  SearchFilter `json:"parameters"`
}

// ImportRequest is the body of POST /cve/import-from-nvd.
type ImportRequest struct {
	Keyword string `json:"keyword,omitempty"`
	Days    int    `json:"days,omitempty"`
}

// AnalysisRequest is the body of POST /analysis/analyze.
type AnalysisRequest struct {
	CVEID        string `json:"cve_id"`
	AnalysisType string `json:"analysis_type,omitempty"`
}

// PoCRequest is the body of POST /poc/generate.
type PoCRequest struct {
	CVEID string `json:"cve_id"`
	Model string `json:"model,omitempty"`
}

// WatchlistRequest is the body of POST /watchlist/.
type WatchlistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// WatchlistCVEsRequest is the body of POST /watchlist/{id}/cves.
type WatchlistCVEsRequest struct {
	CVEIDs []string `json:"cve_ids"`
}

// ChatRequest is the body of POST /chat/.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// ReportRequest is the body of POST /reports/generate.
type ReportRequest struct {
	Type   string `json:"type"`
	Format string `json:"format,omitempty"`
	Title  string `json:"title,omitempty"`
}
