package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/smartpack/internal/export"
	"github.com/eugenenazirov/smartpack/internal/metrics"
	"github.com/eugenenazirov/smartpack/internal/packing"
	"github.com/eugenenazirov/smartpack/internal/storage"
	"github.com/eugenenazirov/smartpack/internal/units"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

const maxBodyBytes = 1 << 20

const (
	contentTypePDF  = "application/pdf"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Handler wires the packing planner and catalog storage into HTTP handlers.
type Handler struct {
	planner packing.Planner
	storage storage.Storage
	metrics *metrics.Metrics
	logger  *zap.Logger
	version string

	clock func() time.Time

	mu               sync.RWMutex
	catalogUpdatedAt time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithMetrics records packing runs and recommendations in m.
func WithMetrics(m *metrics.Metrics) HandlerOption {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithLogger sets the logger used for packing outcome logs.
func WithLogger(logger *zap.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithVersion sets the version reported by the health endpoint.
func WithVersion(version string) HandlerOption {
	return func(h *Handler) {
		h.version = version
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(planner packing.Planner, store storage.Storage, opts ...HandlerOption) *Handler {
	h := &Handler{
		planner: planner,
		storage: store,
		logger:  zap.NewNop(),
		version: "dev",
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.catalogUpdatedAt = h.clock()
	if catalog, err := store.GetCatalog(); err == nil {
		h.metrics.UpdateCatalogSize(len(catalog.Boxes()))
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Version:   h.version,
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetBoxes(w http.ResponseWriter, r *http.Request) {
	_ = r
	catalog, err := h.storage.GetCatalog()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	resp := boxesResponse{
		Boxes:     catalog.Boxes(),
		UpdatedAt: h.currentCatalogUpdatedAt(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handlePutBoxes(w http.ResponseWriter, r *http.Request) {
	var req boxesRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	if err := h.storage.SetCatalog(req.toCatalogBoxes()); err != nil {
		if errors.Is(err, storage.ErrInvalidCatalog) {
			writeError(w, http.StatusUnprocessableEntity, "Invalid box catalog", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}

	h.markCatalogUpdated()

	catalog, err := h.storage.GetCatalog()
	if err != nil {
		writeInternalError(w, err)
		return
	}
	boxes := catalog.Boxes()
	h.metrics.UpdateCatalogSize(len(boxes))
	h.logger.Info("box catalog replaced",
		zap.Int("boxes", len(boxes)),
		zap.String("request_id", requestIDFromContext(r.Context())),
	)

	resp := boxesResponse{
		Boxes:     boxes,
		UpdatedAt: h.currentCatalogUpdatedAt(),
		Message:   "Box catalog updated successfully",
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handlePredictBox(w http.ResponseWriter, r *http.Request) {
	system, err := units.ParseSystem(r.URL.Query().Get("units"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}

	var req predictBoxRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	catalog, err := h.storage.GetCatalog()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	items := toItems(req.Items)
	start := time.Now()
	rec, err := h.planner.PredictBox(r.Context(), items, catalog)
	elapsed := time.Since(start)
	h.metrics.RecordPackRun(metrics.OperationPredict, elapsed, err)
	if err != nil {
		h.logFailure(r.Context(), metrics.OperationPredict, err, elapsed)
		writePackingError(w, err)
		return
	}
	h.metrics.RecordRecommendation(rec.Box)

	h.logger.Info("box predicted",
		zap.String("box", rec.Box.Name),
		zap.Bool("custom", rec.Box.Custom),
		zap.Float64("required_volume", rec.Estimate.RequiredVolume),
		zap.String("void_fill", string(rec.Estimate.VoidFill)),
		zap.Int("items", len(items)),
		zap.Duration("duration", elapsed),
		zap.String("request_id", requestIDFromContext(r.Context())),
	)

	resp := predictBoxResponse{
		Box:            units.PresentBox(rec.Box, system),
		RequiredVolume: units.PresentVolume(rec.Estimate.RequiredVolume, system),
		Envelope:       units.PresentDimensions(rec.Estimate.Envelope, system),
		VoidFill:       rec.Estimate.VoidFill,
		LengthUnit:     string(system.LengthUnit()),
		ComputedInMs:   elapsed.Milliseconds(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleOptimizePack(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	system, err := units.ParseSystem(query.Get("units"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	format := query.Get("format")
	switch format {
	case "", "json", "pdf", "xlsx":
	default:
		writeError(w, http.StatusBadRequest, "Invalid request", fmt.Sprintf("unsupported format %q, expected json, pdf or xlsx", format))
		return
	}

	var req optimizePackRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	items := toItems(req.Items)
	start := time.Now()
	plan, err := h.planner.OptimizePack(r.Context(), items, req.Box.toBox())
	elapsed := time.Since(start)
	h.metrics.RecordPackRun(metrics.OperationOptimize, elapsed, err)
	if err != nil {
		h.logFailure(r.Context(), metrics.OperationOptimize, err, elapsed)
		writePackingError(w, err)
		return
	}
	h.metrics.RecordPlan(plan)

	requestID := requestIDFromContext(r.Context())
	h.logger.Info("pack optimized",
		zap.String("box", plan.Box.Name),
		zap.Int("placements", len(plan.Placements)),
		zap.Float64("space_utilization", plan.SpaceUtilization),
		zap.Duration("duration", elapsed),
		zap.String("request_id", requestID),
	)

	presented := units.PresentPlan(plan, system)
	switch format {
	case "pdf", "xlsx":
		h.writeExport(w, format, presented, export.SlipOptions{
			Reference:  requestID,
			LengthUnit: string(system.LengthUnit()),
			MassUnit:   string(system.MassUnit()),
			Generated:  h.clock(),
		})
	default:
		writeJSON(w, http.StatusOK, optimizePackResponse{
			PackingPlan:  presented,
			LengthUnit:   string(system.LengthUnit()),
			MassUnit:     string(system.MassUnit()),
			ComputedInMs: elapsed.Milliseconds(),
		})
	}
}

func (h *Handler) writeExport(w http.ResponseWriter, format string, plan packing.PackingPlan, opts export.SlipOptions) {
	var (
		buf         bytes.Buffer
		err         error
		contentType string
	)
	switch format {
	case "pdf":
		contentType = contentTypePDF
		err = export.WritePackingSlip(&buf, plan, opts)
	default:
		contentType = contentTypeXLSX
		err = export.WritePlanXLSX(&buf, plan, opts)
	}
	if err != nil {
		writeInternalError(w, fmt.Errorf("render %s export: %w", format, err))
		return
	}

	name := "packing-plan"
	if opts.Reference != "" {
		name += "-" + opts.Reference
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+"."+format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) logFailure(ctx context.Context, operation string, err error, elapsed time.Duration) {
	fields := []zap.Field{
		zap.String("operation", operation),
		zap.String("outcome", metrics.Outcome(err)),
		zap.Duration("duration", elapsed),
		zap.String("request_id", requestIDFromContext(ctx)),
		zap.Error(err),
	}
	switch {
	case errors.Is(err, packing.ErrInvalidInput):
		h.logger.Debug("packing request rejected", fields...)
	case errors.Is(err, packing.ErrInfeasible), errors.Is(err, packing.ErrResourceExceeded):
		h.logger.Warn("packing failed", fields...)
	default:
		h.logger.Error("packing failed", fields...)
	}
}

func (h *Handler) currentCatalogUpdatedAt() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.catalogUpdatedAt
}

func (h *Handler) markCatalogUpdated() {
	h.mu.Lock()
	h.catalogUpdatedAt = h.clock()
	h.mu.Unlock()
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// decodeRequest parses and validates a JSON body, writing the error response
// itself when it returns false.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "Invalid request", fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return false
	}
	if fields := validateRequest(dst); len(fields) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:   "Validation failed",
			Code:    codeInvalidInput,
			Details: "one or more fields are invalid",
			Fields:  fields,
		})
		return false
	}
	return true
}

const (
	codeInvalidRequest   = "invalid_request"
	codeInvalidInput     = "invalid_input"
	codeInfeasible       = "infeasible"
	codeResourceExceeded = "resource_exceeded"
	codeRateLimited      = "rate_limited"
	codeInternal         = "internal_error"
)

type errorResponse struct {
	Error       string            `json:"error"`
	Code        string            `json:"code,omitempty"`
	Details     string            `json:"details,omitempty"`
	Fields      map[string]string `json:"fields,omitempty"`
	Diagnostics *diagnostics      `json:"diagnostics,omitempty"`
	Suggestion  string            `json:"suggestion,omitempty"`
}

type diagnostics struct {
	Unplaced        []string `json:"unplaced,omitempty"`
	RequiredVolume  float64  `json:"required_volume,omitempty"`
	AvailableVolume float64  `json:"available_volume,omitempty"`
	UnplacedVolume  float64  `json:"unplaced_volume,omitempty"`
	Shortfall       float64  `json:"volume_shortfall,omitempty"`
	Oversized       bool     `json:"oversized,omitempty"`
	AnchorLimit     int      `json:"anchor_limit,omitempty"`
	InstanceLimit   int      `json:"instance_limit,omitempty"`
	Placed          int      `json:"placed,omitempty"`
	Total           int      `json:"total,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Code:    codeForStatus(status),
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}

// writePackingError maps planner errors onto HTTP statuses.
func writePackingError(w http.ResponseWriter, err error) {
	var (
		inputErr      *packing.InputError
		infeasibleErr *packing.InfeasibleError
		resourceErr   *packing.ResourceExceededError
	)
	switch {
	case errors.As(err, &inputErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:   "Validation failed",
			Code:    codeInvalidInput,
			Details: err.Error(),
			Fields:  map[string]string{inputErr.Field: inputErr.Reason},
		})
	case errors.As(err, &infeasibleErr):
		resp := errorResponse{
			Error:   "Items do not fit the box",
			Code:    codeInfeasible,
			Details: err.Error(),
			Diagnostics: &diagnostics{
				Unplaced:        infeasibleErr.Unplaced,
				RequiredVolume:  infeasibleErr.RequiredVolume,
				AvailableVolume: infeasibleErr.AvailableVolume,
				UnplacedVolume:  infeasibleErr.UnplacedVolume,
				Shortfall:       infeasibleErr.Shortfall(),
				Oversized:       infeasibleErr.Oversized,
			},
		}
		if infeasibleErr.Oversized {
			resp.Suggestion = "Some items exceed the box on every orientation; request a box recommendation via /api/predict-box"
		} else {
			resp.Suggestion = "Use a larger box or split the shipment"
		}
		writeJSON(w, http.StatusConflict, resp)
	case errors.As(err, &resourceErr):
		diag := &diagnostics{
			Placed: resourceErr.Placed,
			Total:  resourceErr.Total,
		}
		if resourceErr.Resource == packing.ResourceInstances {
			diag.InstanceLimit = resourceErr.Limit
		} else {
			diag.AnchorLimit = resourceErr.Limit
		}
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
			Error:       "Packing search limit exceeded",
			Code:        codeResourceExceeded,
			Details:     err.Error(),
			Diagnostics: diag,
			Suggestion:  "Reduce the number of items per request",
		})
	case errors.Is(err, packing.ErrInvalidInput):
		writeError(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
	default:
		writeInternalError(w, err)
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return codeInvalidRequest
	case http.StatusUnprocessableEntity:
		return codeInvalidInput
	case http.StatusConflict:
		return codeInfeasible
	case http.StatusTooManyRequests:
		return codeRateLimited
	default:
		return codeInternal
	}
}
