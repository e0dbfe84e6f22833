package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tradematch/backend/internal/domain"
	"github.com/tradematch/backend/internal/metrics"
)

const (
	serviceName    = "tradematch-backend"
	serviceVersion = "1.0.0"
)

// RequirementExtractor runs the extraction flow
type RequirementExtractor interface {
	Extract(ctx context.Context, text string) (domain.ProcurementRequirement, error)
}

// SupplierMatcher runs the matching flow
type SupplierMatcher interface {
	Match(ctx context.Context, requirement domain.ProcurementRequirement, suppliers []domain.SupplierProfile) (domain.MatchResult, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	extractor RequirementExtractor
	matcher   SupplierMatcher
	logger    *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(extractor RequirementExtractor, matcher SupplierMatcher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		extractor: extractor,
		matcher:   matcher,
		logger:    logger,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
	})
}

// Dispatch routes a request to the flow named in the x-genkit-client header.
// Received -> Validated -> Dispatched -> Completed | Failed. Dispatch errors are
// reported before any flow runs; flow errors become 500 with the error message.
func (h *Handler) Dispatch(c *gin.Context) {
	flow, err := resolveFlow(c.GetHeader(FlowHeader))
	if err != nil {
		h.reject(c, metricsLabel(err), err)
		return
	}

	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBytes)
	req, err := decodeFlowRequest(flow, body)
	if err != nil {
		h.reject(c, string(flow), err)
		return
	}

	start := time.Now()
	out, err := h.run(c.Request.Context(), req)
	metrics.FlowDuration.WithLabelValues(string(flow)).Observe(time.Since(start).Seconds())

	if err != nil {
		h.fail(c, flow, err)
		return
	}

	metrics.FlowRequests.WithLabelValues(string(flow), strconv.Itoa(http.StatusOK)).Inc()
	c.JSON(http.StatusOK, out)
}

// run invokes the flow matching the request variant
func (h *Handler) run(ctx context.Context, req flowRequest) (interface{}, error) {
	switch r := req.(type) {
	case ExtractionRequest:
		return h.extractor.Extract(ctx, r.Text)
	case MatchingRequest:
		return h.matcher.Match(ctx, r.Requirement, r.InternalSuppliers)
	default:
		return nil, &domain.DispatchError{Flow: string(req.flow()), Err: domain.ErrUnknownFlow}
	}
}

// reject answers client-input failures with the dispatch status
func (h *Handler) reject(c *gin.Context, flow string, err error) {
	status := http.StatusBadRequest
	var dispatchErr *domain.DispatchError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &dispatchErr):
		status = dispatchErr.StatusCode()
	case errors.As(err, &tooLarge):
		status = http.StatusRequestEntityTooLarge
	}

	h.logger.Info("flow request rejected",
		zap.String("flow", flow),
		zap.Int("status", status),
		zap.String("reason", err.Error()),
	)
	metrics.FlowRequests.WithLabelValues(flow, strconv.Itoa(status)).Inc()
	c.String(status, err.Error())
}

func (h *Handler) fail(c *gin.Context, flow FlowName, err error) {
	fields := []zap.Field{zap.String("flow", string(flow)), zap.Error(err)}

	var gwErr *domain.GatewayError
	if errors.As(err, &gwErr) {
		fields = append(fields, zap.Int("gateway_status", gwErr.StatusCode), zap.Bool("retryable", gwErr.Retryable()))
	}
	var extErr *domain.ExtractionError
	if errors.As(err, &extErr) {
		fields = append(fields, zap.String("raw_reply", truncate(extErr.Raw, 500)))
	}

	h.logger.Error("flow failed", fields...)
	metrics.FlowRequests.WithLabelValues(string(flow), strconv.Itoa(http.StatusInternalServerError)).Inc()
	c.String(http.StatusInternalServerError, err.Error())
}

// metricsLabel keeps label cardinality bounded for rejected flow names
func metricsLabel(err error) string {
	if errors.Is(err, domain.ErrFlowNameMissing) {
		return "missing"
	}
	return "unknown"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return domain.TruncateUTF8(s, n) + "..."
}
