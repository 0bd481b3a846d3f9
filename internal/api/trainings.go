package api

import (
	"encoding/json"
	"net/http"

	"trainhub/internal/observe"
	"trainhub/internal/training"
)

// createTrainingRequest mirrors the dashboard form. Type is accepted for
// compatibility and ignored: upstream only creates TEXT records.
type createTrainingRequest struct {
	Agent       string  `json:"agent"`
	Type        string  `json:"type"`
	Text        *string `json:"text"`
	Image       string  `json:"image"`
	CallbackURL string  `json:"callbackUrl"`
}

type updateTrainingRequest struct {
	Type  string  `json:"type"`
	Text  *string `json:"text"`
	Image string  `json:"image"`
}

func trainingsCollectionHandler(svc Trainings, obs *observe.Observer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			q := r.URL.Query()
			agent, err := training.ParseAgent(q.Get("agent"))
			if err != nil {
				writeError(w, http.StatusBadRequest, `query "agent" is required: hm or bm`)
				return
			}
			recs, err := svc.List(r.Context(), agent, q.Get("type"))
			if err != nil {
				writeProxyError(w, r, obs, err)
				return
			}
			writeJSON(w, http.StatusOK, recs)
		case http.MethodPost:
			var req createTrainingRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid json payload")
				return
			}
			agent, err := training.ParseAgent(req.Agent)
			if err != nil {
				writeError(w, http.StatusBadRequest, `field "agent" is required: hm or bm`)
				return
			}
			rec, err := svc.Create(r.Context(), agent, training.CreateInput{
				Text:        deref(req.Text),
				Image:       req.Image,
				CallbackURL: req.CallbackURL,
			})
			if err != nil {
				writeProxyError(w, r, obs, err)
				return
			}
			writeJSON(w, http.StatusCreated, rec)
		default:
			methodNotAllowed(w)
		}
	})
}

func trainingItemHandler(svc Trainings, obs *observe.Observer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := pathTail(r.URL.Path, "/api/trainings/")
		if id == "" {
			writeError(w, http.StatusBadRequest, "missing training id")
			return
		}

		switch r.Method {
		case http.MethodPut:
			var req updateTrainingRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid json payload")
				return
			}
			rec, err := svc.Update(r.Context(), id, training.UpdateInput{
				Text:  deref(req.Text),
				Image: req.Image,
			})
			if err != nil {
				writeProxyError(w, r, obs, err)
				return
			}
			writeJSON(w, http.StatusOK, rec)
		case http.MethodDelete:
			raw, err := svc.Delete(r.Context(), id)
			if err != nil {
				writeProxyError(w, r, obs, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(raw)
		default:
			methodNotAllowed(w)
		}
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
