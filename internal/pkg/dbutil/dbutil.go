package dbutil

import (
	"errors"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
	sqlite "modernc.org/sqlite"
)

var limitRegex = regexp.MustCompile(`(?i)LIMIT\s+\?\s*,\s*\?`)

// Finalize rewrites gendry's MySQL-style "LIMIT ?,?" into the portable
// "LIMIT ? OFFSET ?" form (swapping the bound args to match) and normalizes
// placeholders for the sqlite driver.
func Finalize(query string, args []interface{}) (string, []interface{}) {
	loc := limitRegex.FindStringIndex(query)
	if loc != nil {
		prefix := query[:loc[0]]
		qCount := strings.Count(prefix, "?")
		if qCount+1 < len(args) {
			args[qCount], args[qCount+1] = args[qCount+1], args[qCount]
			query = limitRegex.ReplaceAllString(query, "LIMIT ? OFFSET ?")
		}
	}
	return sqlx.Rebind(sqlx.QUESTION, query), args
}

// IsConflict reports whether err is a sqlite constraint violation
// (unique/primary key). The low byte of every SQLITE_CONSTRAINT_* extended
// code is 19.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code()&0xff == 19
	}
	return strings.Contains(err.Error(), "constraint failed")
}
