package insights

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/visitor-insights/internal/company"
	"github.com/ignite/visitor-insights/internal/engagement"
	"github.com/ignite/visitor-insights/internal/visitor"
)

type hit struct {
	ip, company, page, at string
	duration              int
}

var sampleHits = []hit{
	{"69.191.211.207", "Microsoft Corporation", "/products/knowledge-management", "10:30", 245},
	{"180.179.180.41", "Salesforce Inc", "/solutions/customer-service", "11:15", 320},
	{"3.141.5.27", "Amazon Web Services", "/pricing/enterprise", "12:00", 145},
	{"80.246.241.14", "Deutsche Bank AG", "/demo/virtual-assistant", "12:30", 410},
	{"162.249.164.251", "JPMorgan Chase", "/solutions/ai-chatbots", "13:45", 285},
	{"208.67.222.222", "OpenDNS/Cisco", "/resources/case-studies", "14:20", 190},
	{"69.191.211.207", "Microsoft Corporation", "/products/contact-center", "14:50", 155},
	{"151.101.193.140", "Fastly CDN", "/about/company", "15:10", 95},
	{"104.16.132.229", "Cloudflare", "/integrations/salesforce", "15:35", 275},
	{"173.252.74.22", "Meta/Facebook", "/demo/live-chat", "16:00", 340},
}

func sampleRecords(t *testing.T) []visitor.Record {
	t.Helper()
	out := make([]visitor.Record, len(sampleHits))
	for i, h := range sampleHits {
		ts, err := time.Parse("2006-01-02 15:04", "2024-01-15 "+h.at)
		require.NoError(t, err)
		rec, err := visitor.New(visitor.Fields{
			IPAddress:              h.ip,
			Company:                h.company,
			PageURL:                h.page,
			TimestampUTC:           ts,
			PageViewCount:          1,
			SessionDurationSeconds: h.duration,
		})
		require.NoError(t, err)
		out[i] = rec
	}
	return out
}

func TestSummarize_Counts(t *testing.T) {
	s := Summarize(sampleRecords(t), time.Now())

	assert.Equal(t, 10, s.TotalVisitors)
	assert.Equal(t, 9, s.UniqueIPs)
	assert.Equal(t, 9, s.UniqueCompanies)
	assert.Equal(t, 246, s.AverageSessionTime)

	assert.Equal(t, 3, s.TierCount(engagement.High))
	assert.Equal(t, 6, s.TierCount(engagement.Medium))
	assert.Equal(t, 1, s.TierCount(engagement.Low))
	require.Len(t, s.Tiers, 3)
	assert.Equal(t, engagement.High, s.Tiers[0].Tier)
}

func TestSummarize_TopLists(t *testing.T) {
	s := Summarize(sampleRecords(t), time.Now())

	require.Len(t, s.TopPages, TopN)
	assert.Equal(t, PageStat{Page: "/products/knowledge-management", Count: 1, AvgDuration: 245}, s.TopPages[0])
	assert.Equal(t, "/solutions/ai-chatbots", s.TopPages[4].Page)

	require.Len(t, s.TopCompanies, TopN)
	assert.Equal(t, CompanyStat{Company: "Microsoft Corporation", Count: 2}, s.TopCompanies[0])
	assert.Equal(t, "Salesforce Inc", s.TopCompanies[1].Company)

	assert.Equal(t, []CategoryStat{
		{"Products", 2}, {"Solutions", 2}, {"Demos", 2},
		{"Pricing", 1}, {"Resources", 1}, {"About", 1}, {"Integrations", 1},
	}, s.PageCategories)
}

func TestSummarize_EngagementByPage(t *testing.T) {
	s := Summarize(sampleRecords(t), time.Now())

	require.Len(t, s.EngagementByPage, 10)
	assert.Equal(t, PageEngagement{Page: "/demo/virtual-assistant", AvgDuration: 410, AvgEngagement: engagement.High}, s.EngagementByPage[0])
	assert.Equal(t, "/about/company", s.EngagementByPage[9].Page)
	assert.Equal(t, engagement.Low, s.EngagementByPage[9].AvgEngagement)

	high := s.HighEngagementPages()
	require.Len(t, high, 3)
	assert.Equal(t, "/demo/live-chat", high[1].Page)
}

func TestSummarize_RecentVisitsNewestFirst(t *testing.T) {
	records := sampleRecords(t)
	undated, err := visitor.New(visitor.Fields{IPAddress: "10.0.0.9", PageURL: "/pricing", PageViewCount: 1})
	require.NoError(t, err)
	records = append([]visitor.Record{undated}, records...)

	s := Summarize(records, time.Now())
	require.Len(t, s.RecentVisits, RecentN)
	assert.Equal(t, "Meta/Facebook", s.RecentVisits[0].Company)
	assert.Equal(t, "/demo/live-chat", s.RecentVisits[0].Page)
	assert.Equal(t, engagement.High, s.RecentVisits[0].Tier)
	assert.Equal(t, "OpenDNS/Cisco", s.RecentVisits[4].Company)
	require.NotNil(t, s.RecentVisits[0].TimestampUTC)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, time.Now())
	assert.Equal(t, 0, s.TotalVisitors)
	assert.Equal(t, 0, s.AverageSessionTime)
	assert.Empty(t, s.TopPages)
	assert.Empty(t, s.RecentVisits)
	assert.Len(t, s.Tiers, 3)
}

func TestSummarize_UnknownCompanyAndPage(t *testing.T) {
	rec, err := visitor.New(visitor.Fields{IPAddress: "10.0.0.1", PageViewCount: 1})
	require.NoError(t, err)

	s := Summarize([]visitor.Record{rec}, time.Now())
	assert.Equal(t, company.Unknown, s.TopCompanies[0].Company)
	assert.Equal(t, "Unknown", s.TopPages[0].Page)
	assert.Equal(t, []CategoryStat{{"Other", 1}}, s.PageCategories)
}

func TestSummary_JSONUsesTierNames(t *testing.T) {
	s := Summarize(sampleRecords(t)[:1], time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC))
	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"avg_engagement":"Medium"`)
	assert.Contains(t, string(b), `"generated_at":"2024-01-16T00:00:00Z"`)
}

func TestCategory(t *testing.T) {
	tests := map[string]string{
		"/products/contact-center":  "Products",
		"/Solutions/AI":             "Solutions",
		"/demo":                     "Demos",
		"/pricing":                  "Pricing",
		"/resources/x":              "Resources",
		"/integrations/salesforce":  "Integrations",
		"/about":                    "About",
		"/about/":                   "About",
		"/careers":                  "Other",
		"":                          "Other",
		"/solutions/products-x":     "Solutions",
		"/blog/about-our-pricing":   "Other",
		"/demo-request":             "Other",
		"products/no-leading-slash": "Products",
	}
	for page, want := range tests {
		assert.Equal(t, want, Category(page), page)
	}

	assert.Equal(t, "Pricing", Category("https://www.egain.com/Pricing?plan=pro#faq"))
}

func TestFilter(t *testing.T) {
	records := sampleRecords(t)

	high := engagement.High
	got := Filter(records, Query{Tier: &high})
	require.Len(t, got, 3)
	for _, r := range got {
		assert.Equal(t, engagement.High, r.EngagementTier())
	}

	got = Filter(records, Query{Text: "MICROSOFT"})
	assert.Len(t, got, 2)

	got = Filter(records, Query{Text: "/demo", Limit: 1})
	require.Len(t, got, 1)
	assert.Equal(t, "/demo/virtual-assistant", got[0].PageURL())

	assert.Len(t, Filter(records, Query{}), 10)
}
