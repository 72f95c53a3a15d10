package wallet

import "time"

// TimeLayout is the fixed-width UTC ISO-8601 form used wherever updated_at is
// stored or exported as text, so lexical order equals time order.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// Record is one registered wallet. UserID is the Telegram user id.
type Record struct {
	UserID        int64     `json:"tg_id"`
	Username      string    `json:"username,omitempty"`
	DisplayName   string    `json:"display_name,omitempty"`
	WalletAddress string    `json:"wallet"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// legacyLayout matches zone-less ISO-8601 stamps with optional fractional
// seconds, as written by earlier deployments of the bot. They are UTC.
const legacyLayout = "2006-01-02T15:04:05.999999999"

// ParseTime is the inverse of FormatTime. It also accepts RFC 3339 and
// zone-less legacy stamps, the latter read as UTC.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(TimeLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	return time.ParseInLocation(legacyLayout, s, time.UTC)
}

// IsCanonicalTime reports whether s is already in TimeLayout.
func IsCanonicalTime(s string) bool {
	_, err := time.Parse(TimeLayout, s)
	return err == nil
}

// Truncate drops precision the stores cannot keep.
func Truncate(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// Newer reports whether a sorts before b in listing order:
// updated_at descending, then user id descending.
func Newer(a, b Record) bool {
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	return a.UserID > b.UserID
}
