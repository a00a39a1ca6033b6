package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ignite/visitor-insights/internal/datanorm"
	"github.com/ignite/visitor-insights/internal/pkg/httpretry"
)

// Supabase reads the visitors table through PostgREST.
type Supabase struct {
	baseURL string
	apiKey  string
	table   string
	limit   int
	client  httpretry.HTTPDoer
}

// NewSupabase creates a REST source. A nil client gets a RetryClient.
func NewSupabase(baseURL, apiKey, table string, limit int, client httpretry.HTTPDoer) *Supabase {
	if table == "" {
		table = "visitors"
	}
	if client == nil {
		client = httpretry.NewRetryClient(nil, 3)
	}
	return &Supabase{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		table:   table,
		limit:   limit,
		client:  client,
	}
}

func (s *Supabase) Name() string { return "supabase:" + s.table }

// supabaseRow tolerates visitor_ip columns typed as inet or numbers.
type supabaseRow struct {
	ID          any     `json:"id"`
	VisitorIP   any     `json:"visitor_ip"`
	DateTimeUTC string  `json:"date_time_utc"`
	Domain      *string `json:"domain"`
	RequestType *string `json:"request_type"`
	PageURL     *string `json:"page_url"`
	ReferralURL *string `json:"referral_url"`
	UserAgent   *string `json:"user_agent"`
}

func (s *Supabase) endpoint() string {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "date_time_utc.desc")
	if s.limit > 0 {
		q.Set("limit", strconv.Itoa(s.limit))
	}
	return s.baseURL + "/rest/v1/" + url.PathEscape(s.table) + "?" + q.Encode()
}

func (s *Supabase) Fetch(ctx context.Context) ([]datanorm.Row, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint(), nil)
	if err != nil {
		return nil, fmt.Errorf("build supabase request: %w", err)
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch %s: status %d: %s", s.Name(), resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var raw []supabaseRow
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.Name(), err)
	}

	rows := make([]datanorm.Row, len(raw))
	for i, r := range raw {
		sr := datanorm.StoreRow{
			VisitorIP:   scalarString(r.VisitorIP),
			DateTimeUTC: r.DateTimeUTC,
			Domain:      r.Domain,
			RequestType: r.RequestType,
			PageURL:     r.PageURL,
			ReferralURL: r.ReferralURL,
			UserAgent:   r.UserAgent,
		}
		if id := scalarString(r.ID); id != "" {
			sr.ID = &id
		}
		rows[i] = datanorm.StoreShapedRow(i, sr)
	}
	return tag(rows, s.Name()), nil
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
