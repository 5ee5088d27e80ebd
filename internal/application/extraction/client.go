package extraction

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/alchemorsel/intake/internal/domain/recipe"
	"github.com/alchemorsel/intake/internal/ports/outbound"
	apperrors "github.com/alchemorsel/intake/pkg/errors"
	"go.uber.org/zap"
)

// Client builds prompts, calls the vision model and normalizes its answer
type Client struct {
	model   outbound.VisionModel
	cfg     Config
	metrics outbound.MetricsRecorder
	logger  *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithMetrics sets the metrics recorder
func WithMetrics(m outbound.MetricsRecorder) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates an extraction client
func NewClient(model outbound.VisionModel, cfg Config, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		model:   model,
		cfg:     cfg,
		metrics: outbound.NopMetrics{},
		logger:  logger.Named("extraction"),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Provider returns the name of the underlying model
func (c *Client) Provider() string {
	return c.model.Name()
}

// Extract turns one source into a canonical result. Model calls are not retried.
func (c *Client) Extract(ctx context.Context, src recipe.Source, lang recipe.Language, opts recipe.EnumOptions) (recipe.ExtractionResult, error) {
	start := time.Now()

	req, err := c.buildRequest(src, lang, opts)
	if err != nil {
		c.metrics.ExtractionCompleted(c.model.Name(), outcome(err), time.Since(start))
		return recipe.ExtractionResult{}, err
	}

	raw, err := c.model.Generate(ctx, req)
	if err != nil {
		appErr := classify(c.model.Name(), err)
		c.logger.Warn("Model call failed",
			zap.String("provider", c.model.Name()),
			zap.String("code", string(appErr.Code)),
			zap.String("source", src.Label),
			zap.Error(err),
		)
		c.metrics.ExtractionCompleted(c.model.Name(), outcome(appErr), time.Since(start))
		return recipe.ExtractionResult{}, appErr
	}

	result, err := parseModelOutput(raw, lang)
	if err != nil {
		c.logger.Warn("Model output rejected",
			zap.String("provider", c.model.Name()),
			zap.String("code", string(apperrors.CodeMalformedOutput)),
			zap.Int("response_length", len(raw)),
			zap.Error(err),
		)
		c.metrics.ExtractionCompleted(c.model.Name(), outcome(err), time.Since(start))
		return recipe.ExtractionResult{}, err
	}

	result.Provider = c.model.Name()
	result.RawResponse = raw
	c.metrics.ExtractionCompleted(c.model.Name(), "success", time.Since(start))
	return result, nil
}

func (c *Client) buildRequest(src recipe.Source, lang recipe.Language, opts recipe.EnumOptions) (outbound.ModelRequest, error) {
	if err := src.Validate(); err != nil {
		return outbound.ModelRequest{}, apperrors.NewValidationError(err.Error())
	}

	req := outbound.ModelRequest{Temperature: c.cfg.Temperature, MaxTokens: c.cfg.MaxTokens}

	switch src.Kind {
	case recipe.SourceImage:
		media, err := decodeImage(src.Data, src.MIMEType, c.cfg.MaxImageBytes, c.cfg.AllowedMIMETypes)
		if err != nil {
			return outbound.ModelRequest{}, apperrors.NewValidationError(err.Error())
		}
		req.Media = media
		req.Prompt = buildPrompt(lang, opts, c.cfg.Defaults, "")
	case recipe.SourceHTML:
		text, err := htmlToText(src.Data)
		if err != nil || text == "" {
			return outbound.ModelRequest{}, apperrors.NewValidationError("captured page contains no readable text")
		}
		req.Prompt = buildPrompt(lang, opts, c.cfg.Defaults, text)
	default:
		req.Prompt = buildPrompt(lang, opts, c.cfg.Defaults, strings.TrimSpace(src.Data))
	}
	return req, nil
}

// parseModelOutput strips a markdown fence and maps the JSON object onto the canonical schema
func parseModelOutput(raw string, lang recipe.Language) (recipe.ExtractionResult, error) {
	body := stripCodeFence(raw)

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(body), &obj); err != nil {
		start, end := strings.Index(body, "{"), strings.LastIndex(body, "}")
		if start < 0 || end <= start {
			return recipe.ExtractionResult{}, apperrors.NewMalformedOutputError(err)
		}
		if err := json.Unmarshal([]byte(body[start:end+1]), &obj); err != nil {
			return recipe.ExtractionResult{}, apperrors.NewMalformedOutputError(err)
		}
	}

	result, found := normalize(obj, lang)
	if found == 0 {
		return recipe.ExtractionResult{}, apperrors.NewMalformedOutputError(fmt.Errorf("response has no recipe fields"))
	}
	return result, nil
}

// stripCodeFence removes ```json ... ``` wrappers
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}

// classify maps a model call failure onto an error kind callers can branch on
func classify(service string, err error) *apperrors.AppError {
	if appErr, ok := apperrors.As(err); ok {
		return appErr
	}

	var statusErr *outbound.UpstreamStatusError
	if stderrors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusTooManyRequests:
			return apperrors.NewRateLimitedError(service, err)
		case http.StatusBadGateway, http.StatusServiceUnavailable:
			return apperrors.NewUnavailableError(service, err)
		default:
			return apperrors.NewInternalError(fmt.Sprintf("%s request failed", service)).
				WithMetadata("status", statusErr.StatusCode).
				WithCause(err)
		}
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) || stderrors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewUnavailableError(service, err)
	}

	return apperrors.NewInternalError(fmt.Sprintf("%s request failed", service)).WithCause(err)
}

func outcome(err error) string {
	return strings.ToLower(string(apperrors.GetCode(err)))
}
