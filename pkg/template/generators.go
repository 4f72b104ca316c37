package template

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/mockfig/mockfig/internal/placeholder"
)

// Generator windows. "Recent" values are drawn inside these so mocked
// timestamps look like real activity rather than a frozen clock.
const (
	recentMinutesMin = 1
	recentMinutesMax = 30
	recentDaysMin    = 1
	recentDaysMax    = 7
)

// generate produces the value for one {{generator}} token. Unknown names
// never reach here; config validation rejects them at load time.
func (rc *ResolutionContext) generate(name string) string {
	switch name {
	case placeholder.GenRandomUUID:
		return rc.newUUID()
	case placeholder.GenCurrentTimestamp:
		return rc.Now().Format(time.RFC3339)
	case placeholder.GenTimestamp:
		return rc.recentTime().Format(time.RFC3339)
	case placeholder.GenDate:
		return rc.recentDate().Format(time.DateOnly)
	case placeholder.GenUnixTimestamp:
		return strconv.FormatInt(rc.recentTime().Unix(), 10)
	case placeholder.GenUnixTimestampMs:
		return strconv.FormatInt(rc.recentTime().UnixMilli(), 10)
	}
	return ""
}

func (rc *ResolutionContext) newUUID() string {
	if rc.Rand != nil {
		// Deterministic UUIDs under an injected source keep tests stable.
		var b [16]byte
		for i := range b {
			b[i] = byte(rc.Rand.IntN(256))
		}
		b[6] = (b[6] & 0x0f) | 0x40
		b[8] = (b[8] & 0x3f) | 0x80
		u, err := uuid.FromBytes(b[:])
		if err == nil {
			return u.String()
		}
	}
	return uuid.NewString()
}

// recentTime returns a moment between 1 and 30 minutes before now.
func (rc *ResolutionContext) recentTime() time.Time {
	minutes := recentMinutesMin + rc.intN(recentMinutesMax-recentMinutesMin+1)
	return rc.Now().Add(-time.Duration(minutes) * time.Minute)
}

// recentDate returns a day between 1 and 7 days before now.
func (rc *ResolutionContext) recentDate() time.Time {
	days := recentDaysMin + rc.intN(recentDaysMax-recentDaysMin+1)
	return rc.Now().AddDate(0, 0, -days)
}
