package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ignite/visitor-insights/internal/company"
	"github.com/ignite/visitor-insights/internal/datanorm"
	"github.com/ignite/visitor-insights/internal/insights"
	"github.com/ignite/visitor-insights/internal/pkg/httputil"
	"github.com/ignite/visitor-insights/internal/pkg/logger"
	"github.com/ignite/visitor-insights/internal/visitor"
)

// maxUploadBytes caps spreadsheet uploads.
const maxUploadBytes = 32 << 20

// ImportHandler adapts an uploaded spreadsheet export without storing it.
type ImportHandler struct {
	adapter  *datanorm.Adapter
	resolver company.Resolver
	now      func() time.Time
}

// NewImportHandler creates an ImportHandler. resolver may be nil.
func NewImportHandler(adapter *datanorm.Adapter, resolver company.Resolver) *ImportHandler {
	if adapter == nil {
		adapter = datanorm.NewAdapter()
	}
	return &ImportHandler{adapter: adapter, resolver: resolver, now: time.Now}
}

// ImportResponse is the adapted upload.
type ImportResponse struct {
	Source  string           `json:"source"`
	Records []visitor.Record `json:"records"`
	Issues  []datanorm.Issue `json:"issues"`
	Summary insights.Summary `json:"summary"`
}

// ServeHTTP reads the multipart "file" field (.csv or .xlsx). Pass
// sessionize=true to roll rows up per session.
func (h *ImportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httputil.BadRequest(w, "expected multipart form with a file field")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.BadRequest(w, "missing file field")
		return
	}
	defer file.Close()

	rows, err := datanorm.ReadFile(header.Filename, file)
	if err != nil {
		if errors.Is(err, datanorm.ErrUnsupportedFormat) {
			httputil.ErrorWithCode(w, http.StatusUnsupportedMediaType, "unsupported_format", "upload must be .csv or .xlsx")
			return
		}
		httputil.BadRequest(w, "could not read spreadsheet: "+err.Error())
		return
	}

	res, err := h.adapter.AdaptAll(r.Context(), rows)
	if err != nil {
		respondSafeError(w, http.StatusInternalServerError, err, "")
		return
	}

	records := res.Records
	if sessionize, _ := strconv.ParseBool(r.FormValue("sessionize")); sessionize {
		if records, err = visitor.Sessionize(records); err != nil {
			respondSafeError(w, http.StatusInternalServerError, err, "")
			return
		}
	}
	if h.resolver != nil {
		if records, err = company.Enrich(r.Context(), h.resolver, records); err != nil {
			respondSafeError(w, http.StatusInternalServerError, err, "")
			return
		}
	}

	issues := res.Issues
	if issues == nil {
		issues = []datanorm.Issue{}
	}
	logger.Info("api: spreadsheet imported", "file", header.Filename, "rows", len(rows), "issues", len(issues))
	httputil.OK(w, ImportResponse{
		Source:  header.Filename,
		Records: records,
		Issues:  issues,
		Summary: insights.Summarize(records, h.now()),
	})
}
