package validator

import (
	"time"

	"github.com/opd-ai/rendezvous/apierr"
	"github.com/opd-ai/rendezvous/crypto"
)

// FreshnessWindow is the maximum allowed drift between a record's
// timestamp and the server's clock (spec.md §4.4 Freshness, §8's
// "Freshness" property).
const FreshnessWindow = 60 * time.Second

// CheckFreshness rejects timestamp (epoch seconds) that is more than
// FreshnessWindow away from tp.Now(), in either direction.
func CheckFreshness(tp crypto.TimeProvider, timestamp int64, op string) error {
	now := tp.Now().Unix()
	delta := now - timestamp
	if delta < 0 {
		delta = -delta
	}
	if delta > int64(FreshnessWindow/time.Second) {
		return apierr.New(apierr.KindRequestOutdated, op, "timestamp outside freshness window")
	}
	return nil
}
