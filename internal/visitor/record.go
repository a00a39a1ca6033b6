// Package visitor defines the canonical visitor record shared by the adapter,
// the API, the insights aggregator and the assistant.
package visitor

import (
	"encoding/json"
	"time"

	"github.com/ignite/visitor-insights/internal/engagement"
)

// UnknownTime is the sentinel stored when a visit timestamp could not be parsed.
var UnknownTime = time.Time{}

// Fields carries the inputs for building a Record. The engagement tier is not
// part of Fields; New derives it.
type Fields struct {
	ID                     string
	IPAddress              string
	TimestampUTC           time.Time
	PageURL                string
	ReferrerURL            string
	UserAgent              string
	SessionID              string
	Domain                 string
	Location               string
	Company                string
	PageViewCount          int
	SessionDurationSeconds int
}

// Record is an immutable, classified visitor record. Use New to build one and
// the With* methods to derive modified copies.
type Record struct {
	f    Fields
	tier engagement.Tier
}

// New builds a Record and classifies it. It fails only when the engagement
// inputs are negative.
func New(f Fields) (Record, error) {
	tier, err := engagement.Classify(f.PageViewCount, f.SessionDurationSeconds)
	if err != nil {
		return Record{}, err
	}
	if !f.TimestampUTC.IsZero() {
		f.TimestampUTC = f.TimestampUTC.UTC()
	}
	return Record{f: f, tier: tier}, nil
}

func (r Record) ID() string                  { return r.f.ID }
func (r Record) IPAddress() string           { return r.f.IPAddress }
func (r Record) TimestampUTC() time.Time     { return r.f.TimestampUTC }
func (r Record) PageURL() string             { return r.f.PageURL }
func (r Record) ReferrerURL() string         { return r.f.ReferrerURL }
func (r Record) UserAgent() string           { return r.f.UserAgent }
func (r Record) SessionID() string           { return r.f.SessionID }
func (r Record) Domain() string              { return r.f.Domain }
func (r Record) Location() string            { return r.f.Location }
func (r Record) Company() string             { return r.f.Company }
func (r Record) PageViewCount() int          { return r.f.PageViewCount }
func (r Record) SessionDurationSeconds() int { return r.f.SessionDurationSeconds }
func (r Record) EngagementTier() engagement.Tier {
	return r.tier
}

// TimestampKnown reports whether the source timestamp was parsed.
func (r Record) TimestampKnown() bool {
	return !r.f.TimestampUTC.IsZero()
}

// Fields returns a copy of the record's inputs.
func (r Record) Fields() Fields {
	return r.f
}

// WithEngagement returns a copy with new engagement inputs and a recomputed tier.
func (r Record) WithEngagement(pageViews, durationSeconds int) (Record, error) {
	f := r.f
	f.PageViewCount = pageViews
	f.SessionDurationSeconds = durationSeconds
	return New(f)
}

// WithCompany returns a copy attributed to the given company.
func (r Record) WithCompany(company string) Record {
	r.f.Company = company
	return r
}

type recordJSON struct {
	ID                     string          `json:"id"`
	IPAddress              string          `json:"ip_address"`
	TimestampUTC           *time.Time      `json:"timestamp_utc"`
	PageURL                string          `json:"page_url"`
	ReferrerURL            string          `json:"referrer_url,omitempty"`
	UserAgent              string          `json:"user_agent,omitempty"`
	SessionID              string          `json:"session_id,omitempty"`
	Domain                 string          `json:"domain,omitempty"`
	Location               string          `json:"location,omitempty"`
	Company                string          `json:"company,omitempty"`
	PageViewCount          int             `json:"page_view_count"`
	SessionDurationSeconds int             `json:"session_duration_seconds"`
	EngagementTier         engagement.Tier `json:"engagement_tier"`
}

// MarshalJSON encodes the record with snake_case keys. An unknown timestamp
// is encoded as null.
func (r Record) MarshalJSON() ([]byte, error) {
	out := recordJSON{
		ID:                     r.f.ID,
		IPAddress:              r.f.IPAddress,
		PageURL:                r.f.PageURL,
		ReferrerURL:            r.f.ReferrerURL,
		UserAgent:              r.f.UserAgent,
		SessionID:              r.f.SessionID,
		Domain:                 r.f.Domain,
		Location:               r.f.Location,
		Company:                r.f.Company,
		PageViewCount:          r.f.PageViewCount,
		SessionDurationSeconds: r.f.SessionDurationSeconds,
		EngagementTier:         r.tier,
	}
	if r.TimestampKnown() {
		ts := r.f.TimestampUTC
		out.TimestampUTC = &ts
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a record and recomputes its tier from the engagement
// inputs. Any engagement_tier in the payload is ignored.
func (r *Record) UnmarshalJSON(b []byte) error {
	var in recordJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	f := Fields{
		ID:                     in.ID,
		IPAddress:              in.IPAddress,
		PageURL:                in.PageURL,
		ReferrerURL:            in.ReferrerURL,
		UserAgent:              in.UserAgent,
		SessionID:              in.SessionID,
		Domain:                 in.Domain,
		Location:               in.Location,
		Company:                in.Company,
		PageViewCount:          in.PageViewCount,
		SessionDurationSeconds: in.SessionDurationSeconds,
	}
	if in.TimestampUTC != nil {
		f.TimestampUTC = *in.TimestampUTC
	}
	rec, err := New(f)
	if err != nil {
		return err
	}
	*r = rec
	return nil
}
