// Package repository contains the data access layer. This file holds the
// driver error helpers shared by the entity repositories; the per-entity
// sentinel errors live next to their repositories and let handlers map
// storage failures onto the HTTP taxonomy (404/409) without inspecting
// driver messages themselves.
package repository

import "strings"

// isDuplicate reports whether err is a MySQL duplicate-key error (1062) on
// a unique key whose name contains the given fragment.
func isDuplicate(err error, key string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "1062") && strings.Contains(msg, key)
}

// isFKViolation reports whether err is a MySQL foreign-key error (1452),
// raised when an insert references a row that does not exist.
func isFKViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "1452")
}
