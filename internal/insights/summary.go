// Package insights aggregates classified visitor records into the summary
// shown on the dashboard and handed to the assistant. It never classifies:
// every tier it reports was computed by the engagement classifier.
package insights

import (
	"math"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/ignite/visitor-insights/internal/company"
	"github.com/ignite/visitor-insights/internal/engagement"
	"github.com/ignite/visitor-insights/internal/visitor"
)

const (
	// TopN bounds the top pages and top companies lists.
	TopN = 5
	// RecentN bounds the recent visits list.
	RecentN = 5

	unknownPage = "Unknown"
)

// PageStat is a page's visit count and mean duration in seconds.
type PageStat struct {
	Page        string `json:"page"`
	Count       int    `json:"count"`
	AvgDuration int    `json:"avg_duration"`
}

// PageEngagement is a page's mean duration and the tier that duration
// earns for a single page view.
type PageEngagement struct {
	Page          string          `json:"page"`
	AvgDuration   int             `json:"avg_duration"`
	AvgEngagement engagement.Tier `json:"avg_engagement"`
}

// CompanyStat counts records attributed to a company.
type CompanyStat struct {
	Company string `json:"company"`
	Count   int    `json:"count"`
}

// CategoryStat counts records per page category.
type CategoryStat struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// TierCount counts records per engagement tier.
type TierCount struct {
	Tier  engagement.Tier `json:"tier"`
	Count int             `json:"count"`
}

// Visit is the condensed form of a record used in the recent list.
type Visit struct {
	Company      string          `json:"company"`
	IPAddress    string          `json:"ip_address"`
	Page         string          `json:"page"`
	Duration     int             `json:"duration"`
	Location     string          `json:"location,omitempty"`
	Tier         engagement.Tier `json:"engagement_tier"`
	TimestampUTC *time.Time      `json:"timestamp_utc"`
}

// Summary is the aggregate view of a batch of classified records.
type Summary struct {
	TotalVisitors      int              `json:"total_visitors"`
	UniqueIPs          int              `json:"unique_ips"`
	UniqueCompanies    int              `json:"unique_companies"`
	AverageSessionTime int              `json:"average_session_time"`
	Tiers              []TierCount      `json:"tiers"`
	RecentVisits       []Visit          `json:"recent_visits"`
	TopPages           []PageStat       `json:"top_pages"`
	TopCompanies       []CompanyStat    `json:"top_companies"`
	EngagementByPage   []PageEngagement `json:"engagement_by_page"`
	PageCategories     []CategoryStat   `json:"page_categories"`
	GeneratedAt        time.Time        `json:"generated_at"`
}

// HighEngagementPages returns the pages whose mean duration classifies High.
func (s Summary) HighEngagementPages() []PageEngagement {
	var out []PageEngagement
	for _, p := range s.EngagementByPage {
		if p.AvgEngagement == engagement.High {
			out = append(out, p)
		}
	}
	return out
}

// TierCount returns the number of records in tier t.
func (s Summary) TierCount(t engagement.Tier) int {
	for _, tc := range s.Tiers {
		if tc.Tier == t {
			return tc.Count
		}
	}
	return 0
}

// counter tallies keys in first-seen order so that ties sort stably.
type counter struct {
	order []string
	count map[string]int
	total map[string]int
}

func newCounter() *counter {
	return &counter{count: map[string]int{}, total: map[string]int{}}
}

func (c *counter) add(key string, duration int) {
	if _, ok := c.count[key]; !ok {
		c.order = append(c.order, key)
	}
	c.count[key]++
	c.total[key] += duration
}

func (c *counter) avg(key string) int {
	return roundDiv(c.total[key], c.count[key])
}

// byCount returns keys sorted by descending count, ties in first-seen order.
func (c *counter) byCount() []string {
	keys := make([]string, len(c.order))
	copy(keys, c.order)
	sort.SliceStable(keys, func(i, j int) bool { return c.count[keys[i]] > c.count[keys[j]] })
	return keys
}

func roundDiv(sum, n int) int {
	if n == 0 {
		return 0
	}
	return int(math.Round(float64(sum) / float64(n)))
}

// Summarize aggregates records. now stamps GeneratedAt.
func Summarize(records []visitor.Record, now time.Time) Summary {
	s := Summary{
		TotalVisitors: len(records),
		GeneratedAt:   now.UTC(),
	}

	ips := map[string]struct{}{}
	companies := map[string]struct{}{}
	pages := newCounter()
	orgs := newCounter()
	categories := newCounter()
	tiers := map[engagement.Tier]int{}
	totalDuration := 0

	for _, r := range records {
		ips[r.IPAddress()] = struct{}{}
		name := companyName(r)
		companies[name] = struct{}{}

		page := r.PageURL()
		if page == "" {
			page = unknownPage
		}
		pages.add(page, r.SessionDurationSeconds())
		orgs.add(name, 0)
		categories.add(Category(r.PageURL()), 0)
		tiers[r.EngagementTier()]++
		totalDuration += r.SessionDurationSeconds()
	}

	s.UniqueIPs = len(ips)
	s.UniqueCompanies = len(companies)
	s.AverageSessionTime = roundDiv(totalDuration, len(records))

	for _, t := range engagement.All() {
		s.Tiers = append(s.Tiers, TierCount{Tier: t, Count: tiers[t]})
	}

	for i, page := range pages.byCount() {
		if i == TopN {
			break
		}
		s.TopPages = append(s.TopPages, PageStat{Page: page, Count: pages.count[page], AvgDuration: pages.avg(page)})
	}
	for i, name := range orgs.byCount() {
		if i == TopN {
			break
		}
		s.TopCompanies = append(s.TopCompanies, CompanyStat{Company: name, Count: orgs.count[name]})
	}
	for _, cat := range categories.byCount() {
		s.PageCategories = append(s.PageCategories, CategoryStat{Category: cat, Count: categories.count[cat]})
	}

	s.EngagementByPage = engagementByPage(pages)
	s.RecentVisits = recentVisits(records)
	return s
}

func engagementByPage(pages *counter) []PageEngagement {
	out := make([]PageEngagement, 0, len(pages.order))
	for _, page := range pages.order {
		avg := pages.avg(page)
		// a single page view, so only duration decides the tier
		tier, err := engagement.Classify(1, avg)
		if err != nil {
			tier = engagement.Low
		}
		out = append(out, PageEngagement{Page: page, AvgDuration: avg, AvgEngagement: tier})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AvgDuration > out[j].AvgDuration })
	return out
}

// recentVisits returns the newest records first. Records without a known
// timestamp sort last, keeping input order among themselves.
func recentVisits(records []visitor.Record) []Visit {
	idx := make([]int, len(records))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ra, rb := records[idx[a]], records[idx[b]]
		if ra.TimestampKnown() != rb.TimestampKnown() {
			return ra.TimestampKnown()
		}
		return ra.TimestampUTC().After(rb.TimestampUTC())
	})

	n := min(RecentN, len(idx))
	out := make([]Visit, 0, n)
	for _, i := range idx[:n] {
		r := records[i]
		v := Visit{
			Company:   companyName(r),
			IPAddress: r.IPAddress(),
			Page:      r.PageURL(),
			Duration:  r.SessionDurationSeconds(),
			Location:  r.Location(),
			Tier:      r.EngagementTier(),
		}
		if r.TimestampKnown() {
			ts := r.TimestampUTC()
			v.TimestampUTC = &ts
		}
		out = append(out, v)
	}
	return out
}

func companyName(r visitor.Record) string {
	if strings.TrimSpace(r.Company()) == "" {
		return company.Unknown
	}
	return r.Company()
}

var categoryBySection = map[string]string{
	"products":     "Products",
	"solutions":    "Solutions",
	"demo":         "Demos",
	"demos":        "Demos",
	"pricing":      "Pricing",
	"resources":    "Resources",
	"integrations": "Integrations",
	"about":        "About",
}

// Category buckets a page URL by the leading segment of its path. Absolute
// URLs are reduced to their path first.
func Category(page string) string {
	p := strings.TrimSpace(page)
	if u, err := url.Parse(p); err == nil {
		p = u.Path
	}
	section, _, _ := strings.Cut(strings.TrimLeft(p, "/"), "/")
	if name, ok := categoryBySection[strings.ToLower(section)]; ok {
		return name
	}
	return "Other"
}
