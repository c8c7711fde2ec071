// Package secret derives per-worker callback secrets from a process-wide salt.
//
// Secrets are recomputed on demand rather than stored next to the record, so a
// worker can still authenticate after the record store has been wiped. Anyone
// holding the salt can mint a valid secret for any worker id, which makes the
// salt itself a credential.
package secret

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// DefaultSalt is used when no salt is configured. Deployments must override it.
const DefaultSalt = "vps-manager-salt"

// Deriver computes deterministic callback secrets keyed by a salt.
type Deriver struct {
	salt         []byte
	usingDefault bool
}

// NewDeriver returns a Deriver keyed by salt, falling back to DefaultSalt
// when salt is empty.
func NewDeriver(salt string) *Deriver {
	d := &Deriver{salt: []byte(salt)}
	if salt == "" {
		d.salt = []byte(DefaultSalt)
		d.usingDefault = true
	}
	return d
}

// Derive returns the lowercase hex HMAC-SHA256 of id keyed by the salt.
func (d *Deriver) Derive(id string) string {
	mac := hmac.New(sha256.New, d.salt)
	mac.Write([]byte(id))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether supplied is exactly the secret derived for id.
func (d *Deriver) Verify(id, supplied string) bool {
	return supplied != "" && supplied == d.Derive(id)
}

// UsingDefault reports whether the built-in salt is in effect.
func (d *Deriver) UsingDefault() bool {
	return d.usingDefault
}

// MaskToken returns a display hint for a provisioning credential. Short
// tokens keep their first three characters; longer ones keep the first six
// and last four.
func MaskToken(token string) string {
	r := []rune(token)
	if len(r) <= 10 {
		return string(r[:min(3, len(r))]) + "***"
	}
	return string(r[:6]) + "…" + string(r[len(r)-4:])
}
