package insights

import (
	"strings"

	"github.com/ignite/visitor-insights/internal/engagement"
	"github.com/ignite/visitor-insights/internal/visitor"
)

// Query filters a record listing. Zero values match everything.
type Query struct {
	Tier *engagement.Tier
	// Text is a case-insensitive substring matched against company, domain,
	// IP address, page URL and location.
	Text  string
	Limit int
}

// Filter returns the records matching q in their original order.
func Filter(records []visitor.Record, q Query) []visitor.Record {
	text := strings.ToLower(strings.TrimSpace(q.Text))
	out := make([]visitor.Record, 0, len(records))
	for _, r := range records {
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
		if q.Tier != nil && r.EngagementTier() != *q.Tier {
			continue
		}
		if text != "" && !matchesText(r, text) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func matchesText(r visitor.Record, text string) bool {
	for _, field := range []string{r.Company(), r.Domain(), r.IPAddress(), r.PageURL(), r.Location()} {
		if strings.Contains(strings.ToLower(field), text) {
			return true
		}
	}
	return false
}
