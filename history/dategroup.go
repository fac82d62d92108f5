package history

import "time"

// DateCategory labels a group of conversations by relative recency.
type DateCategory string

const (
	DateToday     DateCategory = "Today"
	DateYesterday DateCategory = "Yesterday"
	DateThisWeek  DateCategory = "This Week"
	DateThisMonth DateCategory = "This Month"
	DateOlder     DateCategory = "Older"
)

// DateGroup holds a category label and its matching conversations.
type DateGroup struct {
	Category      DateCategory
	Conversations []ConversationSummary
}

// GroupByDate buckets conversations by their UpdatedAt time. Only non-empty
// groups are returned, newest category first; conversations keep their
// input order within a group.
func GroupByDate(convs []ConversationSummary) []DateGroup {
	return GroupByDateAt(convs, time.Now())
}

// GroupByDateAt is GroupByDate with an explicit clock. Day boundaries are
// taken in now's location.
func GroupByDateAt(convs []ConversationSummary, now time.Time) []DateGroup {
	loc := now.Location()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	yesterdayStart := todayStart.AddDate(0, 0, -1)
	weekStart := todayStart.AddDate(0, 0, -7)
	monthStart := todayStart.AddDate(0, 0, -30)

	categories := []DateCategory{DateToday, DateYesterday, DateThisWeek, DateThisMonth, DateOlder}
	buckets := make(map[DateCategory][]ConversationSummary, len(categories))

	for _, c := range convs {
		t := ParseTimestamp(c.UpdatedAt)
		var cat DateCategory
		switch {
		case t.IsZero():
			cat = DateOlder
		case !t.Before(todayStart):
			cat = DateToday
		case !t.Before(yesterdayStart):
			cat = DateYesterday
		case !t.Before(weekStart):
			cat = DateThisWeek
		case !t.Before(monthStart):
			cat = DateThisMonth
		default:
			cat = DateOlder
		}
		buckets[cat] = append(buckets[cat], c)
	}

	var groups []DateGroup
	for _, cat := range categories {
		if cs := buckets[cat]; len(cs) > 0 {
			groups = append(groups, DateGroup{Category: cat, Conversations: cs})
		}
	}
	return groups
}

// ParseTimestamp parses a log timestamp, returning the zero time when s is
// empty or malformed.
func ParseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
