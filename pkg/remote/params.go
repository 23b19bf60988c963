package remote

import (
	"net/url"
	"strconv"
	"time"
)

// timeFormat is the timestamp layout the collection API accepts for the
// updated_at_min / updated_at_max filters. Fixed microsecond width so the
// truncated cursor round-trips exactly.
const timeFormat = "2006-01-02T15:04:05.000000Z07:00"

// PageRequest carries the query parameters of one collection fetch.
// The zero value of a field omits the corresponding parameter.
type PageRequest struct {
	// SinceID pages forward from the last-seen record id; the engine
	// only assumes every returned id is >= SinceID
	SinceID int64
	// UpdatedAtMin / UpdatedAtMax bound the extraction window [min, max)
	UpdatedAtMin time.Time
	UpdatedAtMax time.Time
	// Limit is the per-page record cap
	Limit int
	// Status filters by record status; the engine always sends "any"
	Status string
	// Page selects a 1-indexed page for the concurrent strategy
	Page int
}

// Values encodes the request as URL query parameters
func (r PageRequest) Values() url.Values {
	v := url.Values{}
	if r.SinceID > 0 {
		v.Set("since_id", strconv.FormatInt(r.SinceID, 10))
	}
	if !r.UpdatedAtMin.IsZero() {
		v.Set("updated_at_min", r.UpdatedAtMin.UTC().Format(timeFormat))
	}
	if !r.UpdatedAtMax.IsZero() {
		v.Set("updated_at_max", r.UpdatedAtMax.UTC().Format(timeFormat))
	}
	if r.Limit > 0 {
		v.Set("limit", strconv.Itoa(r.Limit))
	}
	if r.Status != "" {
		v.Set("status", r.Status)
	}
	if r.Page > 0 {
		v.Set("page", strconv.Itoa(r.Page))
	}
	return v
}
