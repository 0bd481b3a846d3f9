package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"trainhub/internal/observe"
	"trainhub/internal/ratelimit"
	"trainhub/internal/training"
	"trainhub/internal/widget"
)

// Trainings is the training proxy as the HTTP layer sees it.
type Trainings interface {
	List(ctx context.Context, agent training.Agent, typeFilter string) ([]training.Record, error)
	Create(ctx context.Context, agent training.Agent, in training.CreateInput) (training.Record, error)
	Update(ctx context.Context, trainingID string, in training.UpdateInput) (training.Record, error)
	Delete(ctx context.Context, trainingID string) (json.RawMessage, error)
}

type Deps struct {
	Trainings Trainings
	Widgets   *widget.Catalog
	// ConfiguredAgents is reported by /api/status. Ids are never exposed.
	ConfiguredAgents []string
	WriteLimiter     *ratelimit.Limiter
	Observer         *observe.Observer
	Version          string
}

func NewRouter(d Deps) http.Handler {
	if d.Observer == nil {
		d.Observer = observe.Discard()
	}
	if d.WriteLimiter == nil {
		d.WriteLimiter = ratelimit.NewLimiter(0, time.Minute)
	}
	mux := http.NewServeMux()
	withWriteLimit := func(h http.Handler) http.Handler {
		return writeLimitMiddleware(d.WriteLimiter, h)
	}

	mux.HandleFunc("/api/status", statusHandler(d.ConfiguredAgents, d.Version))
	mux.Handle("/api/trainings", withWriteLimit(trainingsCollectionHandler(d.Trainings, d.Observer)))
	mux.Handle("/api/trainings/", withWriteLimit(trainingItemHandler(d.Trainings, d.Observer)))
	mux.Handle("/api/chats", chatsHandler(d.Widgets))
	mux.Handle("/api/chats/", chatItemHandler(d.Widgets))
	mux.Handle("/mcp", mcpWriteLimitMiddleware(d.WriteLimiter, mcpHandler(d.Trainings, d.Version)))

	return requestIDMiddleware(accessLogMiddleware(d.Observer, corsMiddleware(mux)))
}

func statusHandler(agents []string, version string) http.HandlerFunc {
	type statusResponse struct {
		Status    string   `json:"status"`
		Version   string   `json:"version"`
		Timestamp string   `json:"timestamp"`
		Agents    []string `json:"agents"`
	}
	if agents == nil {
		agents = []string{}
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		writeJSON(w, http.StatusOK, statusResponse{
			Status:    "ok",
			Version:   version,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Agents:    agents,
		})
	}
}

func pathTail(path, prefix string) string {
	tail := strings.TrimPrefix(path, prefix)
	tail = strings.Trim(tail, "/")
	return tail
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// writeProxyError maps the proxy's error kinds to a status. The message is
// passed through so the dashboard can show it verbatim.
func writeProxyError(w http.ResponseWriter, r *http.Request, obs *observe.Observer, err error) {
	var (
		vErr   *training.ValidationError
		cfgErr *training.ConfigurationError
		opErr  *training.OperationError
	)
	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, vErr.Error())
	case errors.As(err, &cfgErr):
		obs.Log().Error().Str("key", cfgErr.Key).Str("request_id", requestID(r.Context())).Msg("training proxy not configured")
		writeError(w, http.StatusInternalServerError, cfgErr.Error())
	case errors.As(err, &opErr):
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":           opErr.Error(),
			"upstream_status": opErr.Status,
		})
	default:
		obs.Log().Error().Err(err).Str("request_id", requestID(r.Context())).Msg("training request failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
