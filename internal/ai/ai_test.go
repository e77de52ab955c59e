package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"

	"plantpal-backend/internal/care"
)

type fakeBackend struct {
	name  string
	text  string
	err   error
	calls int
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Generate(ctx context.Context, _ Action, _ Payload) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func TestClientFallsBackOnPermissionError(t *testing.T) {
	primary := &fakeBackend{name: "vertex", err: errors.New("rpc error: code = PermissionDenied desc = Permission 'aiplatform.endpoints.predict' denied")}
	fallback := &fakeBackend{name: "gemini", text: `{"watering_interval_days": 10, "fertilizing_interval_days": 30}`}
	c := &Client{Primary: primary, Fallback: fallback}

	res, err := c.Run(t.Context(), GenerateSchedule, Payload{Species: "Aloe"})
	require.NoError(t, err)
	require.NotNil(t, res.WateringIntervalDays)
	assert.Equal(t, 10, *res.WateringIntervalDays)
	assert.Equal(t, 30, *res.FertilizingIntervalDays)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestClientDoesNotFallBackOnOtherErrors(t *testing.T) {
	primary := &fakeBackend{name: "vertex", err: errors.New("deadline exceeded")}
	fallback := &fakeBackend{name: "gemini", text: `{}`}
	c := &Client{Primary: primary, Fallback: fallback}

	_, err := c.Run(t.Context(), UpdateStatus, Payload{TaskType: care.Watering, Completed: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deadline exceeded")
	assert.Equal(t, 0, fallback.calls)
}

func TestClientFallbackOnlyWhenPrimaryMissing(t *testing.T) {
	fallback := &fakeBackend{name: "gemini", text: `{"new_happiness": 61}`}
	c := &Client{Fallback: fallback}

	res, err := c.Run(t.Context(), UpdateStatus, Payload{})
	require.NoError(t, err)
	require.NotNil(t, res.Happiness)
	assert.Equal(t, 61, *res.Happiness)
}

func TestClientNotConfigured(t *testing.T) {
	c := &Client{}
	_, err := c.Run(t.Context(), AnalyzePhoto, Payload{ImageURL: "https://x/p.jpg"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestClientUnknownAction(t *testing.T) {
	c := &Client{Fallback: &fakeBackend{name: "gemini", text: "{}"}}
	_, err := c.Run(t.Context(), Action("prune"), Payload{})
	assert.Error(t, err)
}

func TestClientInvalidJSON(t *testing.T) {
	c := &Client{Primary: &fakeBackend{name: "vertex", text: "the plant looks fine"}}
	_, err := c.Run(t.Context(), AnalyzePhoto, Payload{})
	assert.ErrorIs(t, err, ErrInvalidJSON)
}

type slowBackend struct{}

func (slowBackend) Name() string { return "slow" }

func (slowBackend) Generate(ctx context.Context, _ Action, _ Payload) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestClientTimeout(t *testing.T) {
	c := &Client{Primary: slowBackend{}, Timeout: 10 * time.Millisecond}
	_, err := c.Run(t.Context(), GenerateSchedule, Payload{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIsPermissionError(t *testing.T) {
	assert.True(t, IsPermissionError(errors.New("googleapi: Error 403: forbidden")))
	assert.True(t, IsPermissionError(errors.New("PERMISSION_DENIED")))
	assert.True(t, IsPermissionError(errors.New("Permission denied on resource")))
	assert.False(t, IsPermissionError(errors.New("quota exceeded")))
	assert.False(t, IsPermissionError(errors.New("read 14032 bytes, request id 4031")))

	assert.True(t, IsPermissionError(fmt.Errorf("vertex: %w", genai.APIError{Code: 403, Status: "PERMISSION_DENIED"})))
	assert.False(t, IsPermissionError(genai.APIError{Code: 500, Message: "Permission service 403 timed out"}))
	assert.True(t, IsPermissionError(&googleapi.Error{Code: 403}))
	assert.False(t, IsPermissionError(&googleapi.Error{Code: 429, Message: "Permission quota"}))
	assert.False(t, IsPermissionError(nil))
}

func TestParseResult(t *testing.T) {
	t.Run("fenced", func(t *testing.T) {
		res, err := ParseResult("```json\n{\"happiness\": 80, \"healthStatus\": \"healthy\", \"recommendations\": \"keep going\"}\n```")
		require.NoError(t, err)
		require.NotNil(t, res.Happiness)
		assert.Equal(t, 80, *res.Happiness)
		assert.Equal(t, care.Healthy, res.HealthStatus)
		assert.Equal(t, "keep going", res.Recommendations)
	})

	t.Run("prose around object", func(t *testing.T) {
		res, err := ParseResult(`Sure! Here you go: {"health_status": "neglected", "happiness": 30.6} Hope it helps.`)
		require.NoError(t, err)
		assert.Equal(t, 31, *res.Happiness)
		assert.Equal(t, care.Neglected, res.HealthStatus)
	})

	t.Run("out of range values", func(t *testing.T) {
		res, err := ParseResult(`{"happiness": 140, "watering_interval_days": 0, "fertilizing_interval_days": -4}`)
		require.NoError(t, err)
		assert.Equal(t, 100, *res.Happiness)
		assert.Equal(t, 1, *res.WateringIntervalDays)
		assert.Equal(t, 1, *res.FertilizingIntervalDays)
	})

	t.Run("ill-typed fields are ignored", func(t *testing.T) {
		res, err := ParseResult(`{"happiness": "high", "healthStatus": "great", "watering_interval_days": "7", "recommendations": ["water", "sun"]}`)
		require.NoError(t, err)
		assert.Nil(t, res.Happiness)
		assert.Nil(t, res.WateringIntervalDays)
		assert.Empty(t, res.HealthStatus)
		assert.Equal(t, "[water sun]", res.Recommendations)
	})

	t.Run("empty text", func(t *testing.T) {
		res, err := ParseResult("  ")
		require.NoError(t, err)
		assert.Equal(t, Result{}, res)
	})

	t.Run("not an object", func(t *testing.T) {
		_, err := ParseResult("[1, 2]")
		assert.ErrorIs(t, err, ErrInvalidJSON)
	})
}

func TestBuildPrompt(t *testing.T) {
	p, err := BuildPrompt(GenerateSchedule, Payload{CurrentIntervals: care.Intervals{Watering: 5}})
	require.NoError(t, err)
	assert.Contains(t, p, "Plant Species: Unknown")
	assert.Contains(t, p, "Current Watering Interval: 5 days")
	assert.Contains(t, p, "Current Fertilizing Interval: Not set days")

	p, err = BuildPrompt(UpdateStatus, Payload{TaskType: care.Fertilizing, Completed: false, CurrentHappiness: 42})
	require.NoError(t, err)
	assert.Contains(t, p, "Task Type: fertilizing")
	assert.Contains(t, p, "Completed: false")
	assert.Contains(t, p, "Current Happiness: 42")
	assert.Contains(t, p, "Care History: []")

	p, err = BuildPrompt(AnalyzePhoto, Payload{ImageURL: "https://cdn/p.png"})
	require.NoError(t, err)
	assert.Contains(t, p, "Image URL: https://cdn/p.png")

	_, err = BuildPrompt(Action("prune"), Payload{})
	assert.Error(t, err)
}

func TestBuildFallbackPrompt(t *testing.T) {
	p, err := BuildFallbackPrompt(GenerateSchedule, Payload{Species: "Basil"})
	require.NoError(t, err)
	assert.Contains(t, p, `"Basil"`)
	assert.Contains(t, p, "Return ONLY the JSON")

	p, err = BuildFallbackPrompt(UpdateStatus, Payload{TaskType: care.Watering, Completed: true, CurrentHappiness: 50})
	require.NoError(t, err)
	assert.Contains(t, p, "new_happiness")
}
