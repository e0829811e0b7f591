package model

import "time"

// AuditTimeLayout is the on-disk format of audit timestamps (DD/MM/YYYY HH:MM:SS).
const AuditTimeLayout = "02/01/2006 15:04:05"

// Audit actions recorded by the authenticator and the access guard.
const (
	ActionLoginSucceeded = "login succeeded"
	ActionLoginFailed    = "login failed"
	ActionLogout         = "logout"
)

// AuditEntry is one row of the append-only audit log.
type AuditEntry struct {
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}
