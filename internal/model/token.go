package model

import "time"

// RevokedToken is one row of the revocation ledger: the jti claim of an
// access token that was invalidated by logout. Rows are written once and
// never updated; a jti present here is permanently unusable even while the
// token's signature and expiry would still verify.
type RevokedToken struct {
	JTI       string
	RevokedAt time.Time
}
