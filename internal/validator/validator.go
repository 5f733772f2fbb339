// Package validator classifies raw query text as allowed or denied before
// it reaches the executor. Classification is pure: no store access, no
// side effects, and the original text is never modified (comments are only
// stripped on an analysis copy).
package validator

import (
	"regexp"
	"strings"

	qerrors "github.com/quarrydb/quarry/internal/errors"
)

// Keywords that deny a query outright: anything that mutates data or
// schema, or touches engine administration. Matching is whole-word and
// case-insensitive on the comment-stripped analysis copy. A keyword inside
// a string literal still matches; that over-strictness is intentional and
// covered by tests.
var forbiddenKeywords = []string{
	"DROP", "DELETE", "INSERT", "UPDATE", "ALTER", "CREATE", "TRUNCATE",
	"REPLACE", "MERGE", "GRANT", "REVOKE", "EXEC", "EXECUTE", "PRAGMA",
	"ATTACH", "DETACH",
}

var (
	lineCommentRe  = regexp.MustCompile(`(?m)--.*$`)
	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
	forbiddenRe    = regexp.MustCompile(`(?i)\b(` + strings.Join(forbiddenKeywords, "|") + `)\b`)
	selectPrefixRe = regexp.MustCompile(`(?i)^\s*SELECT\b`)
	limitClauseRe  = regexp.MustCompile(`(?i)\bLIMIT\s+\d+\b`)
)

// Verdict is the result of validating one query text.
type Verdict struct {
	Allowed bool
	Reason  string
	Code    string
	// Advisories are non-blocking warnings, e.g. a missing LIMIT clause.
	Advisories []string
}

// Err converts a denied verdict to the corresponding validation error.
// Returns nil for allowed verdicts.
func (v Verdict) Err() error {
	if v.Allowed {
		return nil
	}
	return qerrors.NewValidationError(v.Code, v.Reason)
}

// Validate classifies raw query text. The analysis runs on a copy with SQL
// comments removed; the caller executes the original text if allowed.
func Validate(raw string) Verdict {
	if strings.TrimSpace(raw) == "" {
		return deny(qerrors.CodeEmptyQuery, "query required")
	}

	analysis := StripComments(raw)

	if m := forbiddenRe.FindString(analysis); m != "" {
		return deny(qerrors.CodeForbiddenKeyword,
			"dangerous operation '"+strings.ToUpper(m)+"' not allowed")
	}

	// The multiple-statement check runs on the original text so a
	// semicolon hidden next to comments is still counted.
	if countStatements(raw) > 1 {
		return deny(qerrors.CodeMultipleStatements, "multiple SQL statements not allowed")
	}

	if !selectPrefixRe.MatchString(strings.TrimSpace(analysis)) {
		return deny(qerrors.CodeNotSelect, "only SELECT statements are allowed")
	}

	v := Verdict{Allowed: true}
	if !limitClauseRe.MatchString(analysis) {
		v.Advisories = append(v.Advisories,
			"query has no LIMIT clause; results are bounded by rows_per_page")
	}
	return v
}

// StripComments returns a copy of the query with line comments (--...)
// and block comments (/*...*/) removed.
func StripComments(query string) string {
	query = lineCommentRe.ReplaceAllString(query, "")
	return blockCommentRe.ReplaceAllString(query, "")
}

// countStatements counts non-blank segments split on top-level semicolons.
// A single trailing semicolon therefore does not count as a second
// statement.
func countStatements(query string) int {
	n := 0
	for _, seg := range strings.Split(query, ";") {
		if strings.TrimSpace(seg) != "" {
			n++
		}
	}
	return n
}

func deny(code, reason string) Verdict {
	return Verdict{Allowed: false, Code: code, Reason: reason}
}
