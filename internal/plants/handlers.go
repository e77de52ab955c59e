package plants

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"plantpal-backend/internal/analytics"
	"plantpal-backend/internal/auth"
	"plantpal-backend/internal/care"
)

// PlantView is a plant as served to clients, with its derived status.
type PlantView struct {
	Plant
	HealthStatus care.Status `json:"healthStatus"`
}

func NewPlantView(p Plant) PlantView {
	return PlantView{Plant: p, HealthStatus: care.Classify(p.Happiness)}
}

func CreatePlantHandler(store Store, sink analytics.Sink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var body struct {
			Name                    string `json:"name"`
			Species                 string `json:"species"`
			Happiness               *int   `json:"happiness"`
			WateringIntervalDays    int    `json:"wateringIntervalDays"`
			FertilizingIntervalDays int    `json:"fertilizingIntervalDays"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		if strings.TrimSpace(body.Name) == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}

		happiness := care.DefaultHappiness
		if body.Happiness != nil {
			happiness = *body.Happiness
		}
		iv := care.Intervals{
			Watering:    body.WateringIntervalDays,
			Fertilizing: body.FertilizingIntervalDays,
		}.Normalize()

		p, err := store.CreatePlant(r.Context(), Plant{
			Name:                    strings.TrimSpace(body.Name),
			Species:                 strings.TrimSpace(body.Species),
			Happiness:               care.Clamp(happiness),
			WateringIntervalDays:    iv.Watering,
			FertilizingIntervalDays: iv.Fertilizing,
			PhotoURLs:               []string{},
			UserID:                  uid,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db error")
			return
		}

		// analytics: plant_created (no free text)
		{
			env := analytics.FromRequest(r)
			env.UserID = uid
			props := map[string]any{
				"plant_id":    p.ID,
				"has_species": p.Species != "",
				"happiness":   p.Happiness,
			}
			_ = analytics.Log(r.Context(), sink, env, "plant_created", props, analytics.SourceEventKeyFromRequest(r))
		}

		writeJSON(w, http.StatusCreated, NewPlantView(p))
	}
}

func ListPlantsHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		list, err := store.ListPlants(r.Context(), uid)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db error")
			return
		}

		out := make([]PlantView, 0, len(list))
		for _, p := range list {
			out = append(out, NewPlantView(p))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func GetPlantHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		p, err := store.GetPlant(r.Context(), r.PathValue("id"))
		switch {
		case errors.Is(err, ErrNotFound):
			writeError(w, http.StatusNotFound, "plant not found")
			return
		case err != nil:
			writeError(w, http.StatusInternalServerError, "db error")
			return
		case p.UserID != uid:
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}

		writeJSON(w, http.StatusOK, NewPlantView(p))
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
