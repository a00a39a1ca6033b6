package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ignite/visitor-insights/internal/assistant"
	"github.com/ignite/visitor-insights/internal/engagement"
	"github.com/ignite/visitor-insights/internal/insights"
	"github.com/ignite/visitor-insights/internal/pkg/httputil"
	"github.com/ignite/visitor-insights/internal/snapshot"
	"github.com/ignite/visitor-insights/internal/visitor"
)

// Snapshots is the read side of the snapshot refresher.
type Snapshots interface {
	Latest(ctx context.Context) (*snapshot.Batch, error)
	Summary(ctx context.Context) (insights.Summary, error)
	Refresh(ctx context.Context) (*snapshot.Batch, bool, error)
}

// Assistant answers chat messages about the visitor summary.
type Assistant interface {
	Ask(ctx context.Context, message string, history []assistant.Message) (*assistant.Answer, error)
	ModelID() string
}

// Handlers contains the visitor insight HTTP handlers.
type Handlers struct {
	snapshots Snapshots
	assistant Assistant
	importer  *ImportHandler
}

// NewHandlers creates a Handlers instance. assistant and importer may be
// nil; their routes then answer 503.
func NewHandlers(snapshots Snapshots, asst Assistant, importer *ImportHandler) *Handlers {
	return &Handlers{snapshots: snapshots, assistant: asst, importer: importer}
}

// VisitorListResponse is the body of GET /api/visitors.
type VisitorListResponse struct {
	PaginatedResponse
	Source      string    `json:"source"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// HandleListVisitors returns classified records.
//
//	GET /api/visitors?tier=high&q=bank&limit=50&page=1
func (h *Handlers) HandleListVisitors(w http.ResponseWriter, r *http.Request) {
	q := insights.Query{Text: r.URL.Query().Get("q")}
	if v := r.URL.Query().Get("tier"); v != "" {
		tier, err := engagement.ParseTier(v)
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		q.Tier = &tier
	}

	batch, err := h.snapshots.Latest(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	records := insights.Filter(batch.Records, q)
	httputil.OK(w, VisitorListResponse{
		PaginatedResponse: Paginate[visitor.Record](records, ParsePagination(r, 100, 1000)),
		Source:            batch.Source,
		RefreshedAt:       batch.RefreshedAt,
	})
}

// HandleSummary returns the aggregated view of the latest snapshot.
//
//	GET /api/visitors/summary
func (h *Handlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	s, err := h.snapshots.Summary(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	httputil.OK(w, s)
}

// ClassifyRequest is the body of POST /api/engagement/classify.
type ClassifyRequest struct {
	PageViews       int `json:"page_views"`
	DurationSeconds int `json:"duration_seconds"`
}

// ClassifyResponse is the classifier result.
type ClassifyResponse struct {
	Tier engagement.Tier `json:"tier"`
}

// HandleClassify runs the engagement classifier on one input.
//
//	POST /api/engagement/classify
func (h *Handlers) HandleClassify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	tier, err := engagement.Classify(req.PageViews, req.DurationSeconds)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	httputil.OK(w, ClassifyResponse{Tier: tier})
}

// ChatRequest is the body of POST /api/insights/chat.
type ChatRequest struct {
	Message             string              `json:"message"`
	ConversationHistory []assistant.Message `json:"conversation_history"`
}

// HandleChat answers a question about the current visitors.
//
//	POST /api/insights/chat
func (h *Handlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	if h.assistant == nil {
		httputil.ServiceUnavailable(w, "assistant not configured")
		return
	}
	var req ChatRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	answer, err := h.assistant.Ask(r.Context(), req.Message, req.ConversationHistory)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	httputil.OK(w, answer)
}

// RefreshResponse reports a manual refresh.
type RefreshResponse struct {
	Status      string    `json:"status"`
	Source      string    `json:"source,omitempty"`
	Records     int       `json:"records"`
	Issues      int       `json:"issues"`
	RefreshedAt time.Time `json:"refreshed_at,omitzero"`
}

// HandleRefresh rebuilds the snapshot now. It answers 202 when another
// replica is already refreshing.
//
//	POST /api/snapshot/refresh
func (h *Handlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	batch, ran, err := h.snapshots.Refresh(r.Context())
	if err != nil {
		respondSafeError(w, http.StatusInternalServerError, err, "")
		return
	}
	if !ran {
		httputil.Accepted(w, RefreshResponse{Status: "already_running"})
		return
	}
	httputil.OK(w, RefreshResponse{
		Status:      "refreshed",
		Source:      batch.Source,
		Records:     len(batch.Records),
		Issues:      len(batch.Issues),
		RefreshedAt: batch.RefreshedAt,
	})
}

// HandleImport forwards to the import handler.
//
//	POST /api/visitors/import
func (h *Handlers) HandleImport(w http.ResponseWriter, r *http.Request) {
	if h.importer == nil {
		httputil.ServiceUnavailable(w, "import not configured")
		return
	}
	h.importer.ServeHTTP(w, r)
}
