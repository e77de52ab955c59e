package ai

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"

	"plantpal-backend/internal/care"
)

var (
	fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	bareObject = regexp.MustCompile(`(?s)\{.*\}`)
)

// extractJSON pulls the JSON object out of model text that may be wrapped
// in markdown fences or surrounded by prose.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return "{}"
	}
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := bareObject.FindString(text); m != "" {
		return m
	}
	return text
}

// ParseResult normalizes a model response. Fields of the wrong JSON type are
// ignored rather than rejected; a response that is not a JSON object at all
// is an error.
func ParseResult(text string) (Result, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(extractJSON(text)), &raw); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	var res Result
	if h, ok := number(raw, "happiness", "new_happiness"); ok {
		v := care.Clamp(int(math.Round(h)))
		res.Happiness = &v
	}
	if d, ok := number(raw, "watering_interval_days"); ok {
		v := max(1, int(math.Round(d)))
		res.WateringIntervalDays = &v
	}
	if d, ok := number(raw, "fertilizing_interval_days"); ok {
		v := max(1, int(math.Round(d)))
		res.FertilizingIntervalDays = &v
	}

	for _, k := range []string{"healthStatus", "health_status"} {
		if s, ok := raw[k].(string); ok && care.ValidStatus(s) {
			res.HealthStatus = care.Status(s)
			break
		}
	}

	switch rec := raw["recommendations"].(type) {
	case nil:
	case string:
		res.Recommendations = rec
	default:
		res.Recommendations = fmt.Sprint(rec)
	}

	return res, nil
}

func number(raw map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if f, ok := raw[k].(float64); ok && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f, true
		}
	}
	return 0, false
}
