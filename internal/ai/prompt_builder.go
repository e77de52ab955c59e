package ai

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func daysOrNotSet(n int) string {
	if n <= 0 {
		return "Not set"
	}
	return strconv.Itoa(n)
}

// BuildPrompt renders the full prompt used against Vertex AI.
func BuildPrompt(action Action, p Payload) (string, error) {
	var b strings.Builder

	switch action {
	case GenerateSchedule:
		b.WriteString("You are an autonomous plant care assistant. Generate an optimal care schedule for a plant.\n\n")
		b.WriteString("Plant Species: ")
		b.WriteString(orDefault(p.Species, "Unknown"))
		b.WriteString("\nCurrent Watering Interval: ")
		b.WriteString(daysOrNotSet(p.CurrentIntervals.Watering))
		b.WriteString(" days\nCurrent Fertilizing Interval: ")
		b.WriteString(daysOrNotSet(p.CurrentIntervals.Fertilizing))
		b.WriteString(" days\n")
		b.WriteString(scheduleInstructions)

	case UpdateStatus:
		history, _ := json.Marshal(nonNil(p.CareHistory))
		b.WriteString("You are an autonomous plant care assistant. Analyze plant care status and update the happiness level.\n\n")
		fmt.Fprintf(&b, "Task Type: %s\n", p.TaskType)
		fmt.Fprintf(&b, "Completed: %t\n", p.Completed)
		fmt.Fprintf(&b, "Current Happiness: %d\n", p.CurrentHappiness)
		fmt.Fprintf(&b, "Care History: %s\n", history)
		b.WriteString(statusInstructions)

	case AnalyzePhoto:
		b.WriteString("You are a professional botanist analyzing a plant photo for health assessment.\n\n")
		b.WriteString("Image URL: ")
		b.WriteString(p.ImageURL)
		b.WriteString("\n")
		b.WriteString(photoInstructions)

	default:
		return "", fmt.Errorf("unknown action: %s", action)
	}

	return b.String(), nil
}

// BuildFallbackPrompt renders the shorter prompt used against the Gemini API.
func BuildFallbackPrompt(action Action, p Payload) (string, error) {
	var b strings.Builder

	switch action {
	case GenerateSchedule:
		fmt.Fprintf(&b, "You are a plant care expert. Based on the plant species %q, provide optimal care intervals in JSON format.\n",
			orDefault(p.Species, "unknown"))
		b.WriteString(fallbackScheduleInstructions)

	case UpdateStatus:
		b.WriteString("Calculate the happiness change for a plant care task.\n")
		fmt.Fprintf(&b, "Task type: %s\n", p.TaskType)
		fmt.Fprintf(&b, "Completed: %t\n", p.Completed)
		fmt.Fprintf(&b, "Current happiness: %d\n", p.CurrentHappiness)
		b.WriteString(fallbackStatusInstructions)

	case AnalyzePhoto:
		b.WriteString("You are analyzing a plant photo. Assess the plant's health and assign a happiness score (0-100).\n")
		b.WriteString("Image URL: ")
		b.WriteString(p.ImageURL)
		b.WriteString("\n")
		b.WriteString(fallbackPhotoInstructions)

	default:
		return "", fmt.Errorf("unknown action: %s", action)
	}

	return b.String(), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
