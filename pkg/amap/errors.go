package amap

import (
	"errors"
	"fmt"
)

// ErrQuotaExhausted is returned once the configured daily call quota is used
// up, or when the service reports the account's daily limit was reached.
// Fatal for the remainder of the day; re-running tomorrow is fine.
var ErrQuotaExhausted = errors.New("amap: daily query quota exhausted")

// ErrBlocked is returned when the service rejects the key or IP in a way no
// retry can fix (disabled key, signature mismatch, IP ban, verification
// required). Fatal for the remainder of the run.
var ErrBlocked = errors.New("amap: requests blocked by service")

// APIError is a business-level rejection from the Amap REST API
// (status != "1" in the response envelope).
type APIError struct {
	InfoCode string
	Info     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("amap: api error %s: %s", e.InfoCode, e.Info)
}

// Amap infocode classes. The REST envelope reports business failures through
// a numeric infocode even when the HTTP status is 200.
var (
	// Daily quota reached for the key or the account.
	quotaInfocodes = map[string]bool{
		"10003": true, // DAILY_QUERY_OVER_LIMIT
		"10044": true, // USER_DAILY_QUERY_OVER_LIMIT
	}

	// Momentary throttling; the same request succeeds after the courtesy
	// spacing, so these are retried.
	throttleInfocodes = map[string]bool{
		"10004": true, // ACCESS_TOO_FREQUENT
		"10019": true, // CQPS_HAS_EXCEEDED_THE_LIMIT
		"10020": true, // CKQPS_HAS_EXCEEDED_THE_LIMIT
		"10021": true, // CUQPS_HAS_EXCEEDED_THE_LIMIT
		"10022": true, // INVALID_REQUEST (burst rejection)
	}

	// Key, signature or IP level rejections. Retrying burns quota for
	// nothing, so the whole run aborts.
	blockedInfocodes = map[string]bool{
		"10005": true, // INVALID_USER_IP
		"10006": true, // INVALID_USER_DOMAIN
		"10007": true, // INVALID_USER_SIGNATURE
		"10008": true, // INVALID_USER_SCODE
		"10009": true, // USERKEY_PLAT_NOMATCH
		"10013": true, // USERKEY_RECYCLED
	}
)
