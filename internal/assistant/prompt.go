package assistant

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"sync"

	"github.com/osteele/liquid"

	"github.com/ignite/visitor-insights/internal/insights"
)

// DefaultPromptTemplate is the Liquid template of the system prompt. Its
// bindings are the snake_case JSON fields of insights.Summary plus site and
// high_engagement_pages.
const DefaultPromptTemplate = `You are an AI assistant specialized in analyzing website visitor behavior and page-level analytics for {{ site }}. You focus on providing insights about which specific pages visitors are viewing, how long they spend on each page, and what this indicates about their interests and intent.

Current Page Analytics Summary:
- Total page visits: {{ summary.total_visitors }}
- Unique visitors: {{ summary.unique_ips }}
- Unique companies: {{ summary.unique_companies }}
- Average session time: {{ summary.average_session_time | secs }}

Engagement Tiers:
{% for t in summary.tiers %}- {{ t.tier }}: {{ t.count }} visitors
{% endfor %}
Top Pages by Visits:
{% for p in summary.top_pages %}- {{ p.page }}: {{ p.count }} visits (avg {{ p.avg_duration | secs }})
{% endfor %}
Page Categories Performance:
{% for c in summary.page_categories %}- {{ c.category }}: {{ c.count }} visits
{% endfor %}
High Engagement Pages:
{% for p in high_engagement_pages %}- {{ p.page }}: {{ p.avg_duration | secs }} avg time
{% endfor %}{% if high_engagement_pages.size == 0 %}- none yet
{% endif %}
Company Activity:
{% for c in summary.top_companies %}- {{ c.company }}: {{ c.count }} page visits
{% endfor %}
Recent Page Visits:
{% for v in summary.recent_visits %}- {{ v.company }} visited {{ v.page | default: "an unknown page" }} for {{ v.duration | secs }}{% if v.location %} from {{ v.location }}{% endif %} ({{ v.engagement_tier }} engagement)
{% endfor %}
The engagement tiers above are final. Do not recompute or reinterpret them.

When analyzing this data, focus on:
1. Which specific pages are getting the most attention
2. Page engagement patterns and what they indicate about visitor intent
3. Company behavior patterns across different page types
4. Recommendations for content optimization based on page performance
5. Identification of high-intent visitors based on pages visited
6. Page-level conversion opportunities

Continue the conversation naturally, building upon previous context when relevant. Provide specific, actionable insights about page performance and visitor behavior.`

// Prompt renders a summary into a system prompt.
type Prompt struct {
	engine *liquid.Engine
	source string
	site   string

	once sync.Once
	tpl  *liquid.Template
	err  error
}

// NewPrompt compiles tmpl, or DefaultPromptTemplate when tmpl is "".
func NewPrompt(tmpl, site string) (*Prompt, error) {
	if tmpl == "" {
		tmpl = DefaultPromptTemplate
	}
	if site == "" {
		site = "the website"
	}

	engine := liquid.NewEngine()
	// Seconds formatting: {{ 245.4 | secs }} -> "245s"
	engine.RegisterFilter("secs", func(v float64) string {
		return strconv.Itoa(int(math.Round(v))) + "s"
	})

	p := &Prompt{engine: engine, source: tmpl, site: site}
	if _, err := p.template(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Prompt) template() (*liquid.Template, error) {
	p.once.Do(func() {
		tpl, err := p.engine.ParseString(p.source)
		if err != nil {
			p.err = fmt.Errorf("parse prompt template: %w", err)
			return
		}
		p.tpl = tpl
	})
	return p.tpl, p.err
}

// Render produces the system prompt for s.
func (p *Prompt) Render(s insights.Summary) (string, error) {
	tpl, err := p.template()
	if err != nil {
		return "", err
	}

	summary, err := toBindings(s)
	if err != nil {
		return "", err
	}
	high := []any{}
	if pages := s.HighEngagementPages(); len(pages) > 0 {
		b, err := toBindings(pages)
		if err != nil {
			return "", err
		}
		high = b.([]any)
	}

	out, rerr := tpl.RenderString(liquid.Bindings{
		"site":                  p.site,
		"summary":               summary,
		"high_engagement_pages": high,
	})
	if rerr != nil {
		return "", fmt.Errorf("render prompt: %w", rerr)
	}
	return out, nil
}

// toBindings converts v to the generic maps and slices Liquid walks.
func toBindings(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode prompt data: %w", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode prompt data: %w", err)
	}
	return out, nil
}
