package history

import (
	"fmt"
	"sort"
)

// SortField selects the timestamp a listing is ordered by.
type SortField string

const (
	SortCreated SortField = "created"
	SortUpdated SortField = "updated"
)

// SortOrder is the direction of a listing sort.
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// DefaultLimit is the page size used when a query leaves Limit at zero.
const DefaultLimit = 20

// ListQuery filters, sorts and paginates a conversation listing. The zero
// value matches everything and returns the first DefaultLimit rows in
// build order.
type ListQuery struct {
	ProjectPath     string
	HasContinuation *bool
	Archived        *bool
	Pinned          *bool

	SortBy SortField
	Order  SortOrder // defaults to ascending

	Limit  int
	Offset int
}

// ParseSortField validates a sort field name. The empty string is allowed
// and means unsorted.
func ParseSortField(s string) (SortField, error) {
	switch f := SortField(s); f {
	case "", SortCreated, SortUpdated:
		return f, nil
	}
	return "", fmt.Errorf("invalid sort field %q (want created or updated)", s)
}

// ParseSortOrder validates a sort order name.
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(s); o {
	case "", OrderAsc, OrderDesc:
		return o, nil
	}
	return "", fmt.Errorf("invalid sort order %q (want asc or desc)", s)
}

// ApplyQuery returns the page of convs selected by q and the number of rows
// that matched before pagination. A nil query returns convs unchanged.
// convs is not modified.
func ApplyQuery(convs []ConversationSummary, q *ListQuery) ([]ConversationSummary, int) {
	if q == nil {
		return convs, len(convs)
	}

	out := make([]ConversationSummary, 0, len(convs))
	for _, c := range convs {
		if q.matches(c) {
			out = append(out, c)
		}
	}

	if key := sortKey(q.SortBy); key != nil {
		desc := q.Order == OrderDesc
		sort.SliceStable(out, func(i, j int) bool {
			if desc {
				return key(out[j]) < key(out[i])
			}
			return key(out[i]) < key(out[j])
		})
	}

	total := len(out)
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	offset := max(q.Offset, 0)
	if offset >= total {
		return []ConversationSummary{}, total
	}
	end := min(offset+limit, total)
	return out[offset:end], total
}

func (q *ListQuery) matches(c ConversationSummary) bool {
	if q.ProjectPath != "" && c.ProjectPath != q.ProjectPath {
		return false
	}
	if q.HasContinuation != nil && (c.SessionInfo.ContinuationSessionID != "") != *q.HasContinuation {
		return false
	}
	if q.Archived != nil && c.SessionInfo.Archived != *q.Archived {
		return false
	}
	if q.Pinned != nil && c.SessionInfo.Pinned != *q.Pinned {
		return false
	}
	return true
}

// sortKey returns the timestamp accessor for f. Timestamps are ISO-8601
// strings in a single layout, so string order is time order.
func sortKey(f SortField) func(ConversationSummary) string {
	switch f {
	case SortCreated:
		return func(c ConversationSummary) string { return c.CreatedAt }
	case SortUpdated:
		return func(c ConversationSummary) string { return c.UpdatedAt }
	}
	return nil
}
