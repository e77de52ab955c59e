package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"

	"plantpal-backend/internal/care"
)

var (
	ErrNotConfigured = errors.New("ai: no backend configured")
	ErrInvalidJSON   = errors.New("ai: invalid JSON from model")
)

type Action string

const (
	GenerateSchedule Action = "generate_schedule"
	UpdateStatus     Action = "update_status"
	AnalyzePhoto     Action = "analyze_photo"
)

func (a Action) Valid() bool {
	switch a {
	case GenerateSchedule, UpdateStatus, AnalyzePhoto:
		return true
	}
	return false
}

// Payload carries the inputs of every action; each prompt reads only
// the fields relevant to its action.
type Payload struct {
	Species          string
	CurrentIntervals care.Intervals
	TaskType         care.TaskKind
	Completed        bool
	CurrentHappiness int
	CareHistory      []string
	ImageURL         string
}

// Result is the best-effort opinion of the model. Nil/empty fields mean
// the model had no (well-typed) opinion.
type Result struct {
	Happiness               *int
	HealthStatus            care.Status
	WateringIntervalDays    *int
	FertilizingIntervalDays *int
	Recommendations         string
}

type Agent interface {
	Run(ctx context.Context, action Action, p Payload) (Result, error)
}

// Backend produces raw model text for an action.
type Backend interface {
	Name() string
	Generate(ctx context.Context, action Action, p Payload) (string, error)
}

// Client runs the primary backend (Vertex AI) and switches to the fallback
// (Gemini API) only when the primary fails with a permission-class error.
// There are no retries beyond that single switch.
type Client struct {
	Primary  Backend
	Fallback Backend
	Timeout  time.Duration
	Logger   *log.Logger
}

func (c *Client) Run(ctx context.Context, action Action, p Payload) (Result, error) {
	if !action.Valid() {
		return Result{}, fmt.Errorf("unknown action: %s", action)
	}
	logger := c.Logger
	if logger == nil {
		logger = log.Default()
	}

	if c.Primary != nil {
		res, err := c.run(ctx, c.Primary, action, p)
		if err == nil {
			return res, nil
		}
		if !IsPermissionError(err) || c.Fallback == nil {
			return Result{}, err
		}
		logger.Warn("primary AI backend denied, using fallback",
			"primary", c.Primary.Name(), "fallback", c.Fallback.Name(), "err", err)
	} else {
		if c.Fallback == nil {
			return Result{}, ErrNotConfigured
		}
		logger.Debug("primary AI backend not configured", "using", c.Fallback.Name())
	}

	return c.run(ctx, c.Fallback, action, p)
}

func (c *Client) run(ctx context.Context, b Backend, action Action, p Payload) (Result, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	text, err := b.Generate(ctx, action, p)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", b.Name(), err)
	}
	res, err := ParseResult(text)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return res, nil
}

// IsPermissionError matches the errors worth retrying on another endpoint:
// IAM denials surfaced as HTTP 403 / PERMISSION_DENIED. Typed API errors
// are trusted over the message text.
func IsPermissionError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusForbidden || apiErr.Status == "PERMISSION_DENIED"
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code == http.StatusForbidden
	}
	msg := err.Error()
	return strings.Contains(msg, "PERMISSION_DENIED") ||
		strings.Contains(msg, "Permission") ||
		strings.Contains(msg, "Error 403") ||
		strings.Contains(msg, "403 Forbidden")
}
