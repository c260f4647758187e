package utils

import "database/sql"

// DerefString converts a string to sql.NullString for database operations.
// Returns a valid NullString if the input is non-empty, otherwise returns an invalid NullString.
func DerefString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

// RefString is the inverse of DerefString: NULL reads back as the empty string.
func RefString(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return ns.String
}
