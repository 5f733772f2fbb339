package types

// DefaultRowsPerPage bounds result pages when the caller does not ask for
// a specific page size.
const DefaultRowsPerPage = 1000

// QueryRequest is a single read-only query invocation. Page is 1-based;
// zero values for Page and RowsPerPage select the defaults (1 and
// DefaultRowsPerPage).
type QueryRequest struct {
	Query       string `json:"query"`
	Page        int    `json:"page,omitempty"`
	RowsPerPage int    `json:"rows_per_page,omitempty"`
}

// Normalize applies the documented defaults in place.
func (r *QueryRequest) Normalize() {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.RowsPerPage <= 0 {
		r.RowsPerPage = DefaultRowsPerPage
	}
}

// Offset returns the row offset for the requested page.
func (r QueryRequest) Offset() int {
	return (r.Page - 1) * r.RowsPerPage
}

// QueryResult holds one page of query results. TotalCount is the size of
// the full (unpaged) result set for the same query text. ExecutionTimeMs
// is populated on every outcome, including failures.
type QueryResult struct {
	Success         bool                     `json:"success"`
	Columns         []string                 `json:"columns"`
	Rows            []map[string]interface{} `json:"results"`
	TotalCount      int64                    `json:"total_count"`
	Page            int                      `json:"page"`
	RowsPerPage     int                      `json:"rows_per_page"`
	ExecutionTimeMs int64                    `json:"execution_time_ms"`
}
