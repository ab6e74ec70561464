// Package mood provides mood value mapping and the per-day aggregation used
// by the mood chart.
//
// A Tracker owns its aggregate map exclusively: callers mutate it only
// through Upsert and read it through Average, TimeSeries and Snapshot, so no
// aliasing with caller-held maps can occur.
package mood

import (
	"log/slog"
	"time"

	"github.com/serenia-app/serenia/internal/models"
)

// DayKeyFormat is the calendar-day key layout, derived in UTC so the same
// instant always lands in the same bucket regardless of the local timezone.
const DayKeyFormat = "2006-01-02"

// EmojiToValue maps a mood symbol to its numeric value. Unknown symbols
// default to 3 (neutral). 😭 and 😡 both map to 1: the two strongest
// negative moods count as equally severe.
func EmojiToValue(symbol string) models.MoodValue {
	switch symbol {
	case "😊":
		return 5
	case "😐":
		return 3
	case "😔":
		return 2
	case "😭":
		return 1
	case "😡":
		return 1
	default:
		return 3
	}
}

// DateKey returns the calendar-day key for t.
func DateKey(t time.Time) string {
	return t.UTC().Format(DayKeyFormat)
}

// Tracker accumulates mood values per calendar day.
type Tracker struct {
	days map[string]models.MoodAggregate
}

// NewTracker creates an empty mood tracker.
func NewTracker() *Tracker {
	return &Tracker{days: make(map[string]models.MoodAggregate)}
}

// Load rebuilds a tracker from persisted mood records.
func Load(records []models.MoodRecord) *Tracker {
	t := NewTracker()
	for _, r := range records {
		t.Upsert(r.RecordedAt, r.Value)
	}
	slog.Debug("Mood tracker loaded from records", "records", len(records), "days", len(t.days))
	return t
}

// Upsert records a mood value for the day containing ts. The tracker is
// mutated in place and also returned, so callers may rely on either the
// return value or the in-place effect.
func (t *Tracker) Upsert(ts time.Time, v models.MoodValue) *Tracker {
	k := DateKey(ts)
	prev := t.days[k]
	t.days[k] = models.MoodAggregate{Sum: prev.Sum + float64(v), Count: prev.Count + 1}
	return t
}

// Average returns the mean mood for the day containing ts. The second return
// value is false when no mood was recorded that day.
func (t *Tracker) Average(ts time.Time) (float64, bool) {
	ag, ok := t.days[DateKey(ts)]
	if !ok || ag.Count == 0 {
		return 0, false
	}
	return ag.Sum / float64(ag.Count), true
}

// TimeSeries produces exactly days points ending today, oldest first. Days
// with no recorded mood have a nil value. days must be positive; the UI
// passes 7 or 30 but any positive count works.
func (t *Tracker) TimeSeries(days int) []models.MoodPoint {
	return t.TimeSeriesAt(time.Now(), days)
}

// TimeSeriesAt is TimeSeries anchored at an explicit reference time.
func (t *Tracker) TimeSeriesAt(now time.Time, days int) []models.MoodPoint {
	if days <= 0 {
		return nil
	}
	result := make([]models.MoodPoint, 0, days)
	for i := days - 1; i >= 0; i-- {
		d := now.AddDate(0, 0, -i)
		p := models.MoodPoint{Date: d}
		if avg, ok := t.Average(d); ok {
			p.Value = &avg
		}
		result = append(result, p)
	}
	return result
}

// Snapshot returns a defensive copy of the per-day aggregates.
func (t *Tracker) Snapshot() map[string]models.MoodAggregate {
	out := make(map[string]models.MoodAggregate, len(t.days))
	for k, v := range t.days {
		out[k] = v
	}
	return out
}
