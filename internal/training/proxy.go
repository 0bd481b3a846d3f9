// Package training is a thin adapter over the provider's training API. It
// presents list/create/update/delete scoped to a logical agent and hides
// that upstream partitions listings by content type and addresses updates
// and deletes by a global training id.
//
// Create and Update always send type TEXT. That is the provider's contract:
// only TEXT records can be created or edited in place, and links, videos and
// documents are stored as TEXT records whose text is the URL. Do not make the
// type caller-selectable.
package training

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"trainhub/internal/config"
	"trainhub/internal/observe"
)

// Proxy holds no state between calls and caches nothing.
type Proxy struct {
	agents   map[string]string
	upstream *upstream
	obs      *observe.Observer
}

// NewProxy builds a Proxy from configuration loaded once at startup.
// httpClient may be nil, in which case one is built with cfg.Timeout; the
// proxy imposes no timeouts of its own. obs may be nil.
func NewProxy(cfg config.Upstream, httpClient *http.Client, obs *observe.Observer) *Proxy {
	if obs == nil {
		obs = observe.Discard()
	}
	agents := make(map[string]string, len(cfg.Agents))
	for k, v := range cfg.Agents {
		agents[k] = strings.TrimSpace(v)
	}
	return &Proxy{
		agents:   agents,
		upstream: newUpstream(cfg, httpClient, obs),
		obs:      obs,
	}
}

// Resolve maps a logical agent to its upstream id without touching the
// network.
func (p *Proxy) Resolve(agent Agent) (string, error) {
	key := config.AgentEnvKey(string(agent))
	if key == "" {
		return "", &ConfigurationError{Key: "agent", Message: "unknown agent " + strconv.Quote(string(agent))}
	}
	id := p.agents[string(agent)]
	if id == "" {
		return "", &ConfigurationError{Key: key}
	}
	return id, nil
}

// List returns the agent's training records. A recognized typeFilter issues
// one upstream request. Anything else, including "", lists all four types
// concurrently and concatenates them in Types order. Any failed request
// fails the whole call; the first failure cancels the rest.
func (p *Proxy) List(ctx context.Context, agent Agent, typeFilter string) ([]Record, error) {
	agentID, err := p.Resolve(agent)
	if err != nil {
		return nil, err
	}
	if t, ok := ParseType(typeFilter); ok {
		return p.listType(ctx, agentID, t)
	}

	parts := make([][]Record, len(Types))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range Types {
		g.Go(func() error {
			recs, err := p.listType(gctx, agentID, t)
			if err != nil {
				return err
			}
			parts[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	n := 0
	for _, part := range parts {
		n += len(part)
	}
	merged := make([]Record, 0, n)
	for _, part := range parts {
		merged = append(merged, part...)
	}
	p.obs.Log().Info().Str("agent", string(agent)).Int("count", len(merged)).Msg("merged training listing")
	return merged, nil
}

func (p *Proxy) listType(ctx context.Context, agentID string, t Type) ([]Record, error) {
	if t == "" {
		t = TypeText
	}
	q := url.Values{"type": {string(t)}}
	path := "/agent/" + url.PathEscape(agentID) + "/trainings?" + q.Encode()
	b, err := p.upstream.do(ctx, "list trainings", http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	recs, err := decodeRecordList(b)
	if err != nil {
		return nil, &OperationError{Op: "list trainings", Status: http.StatusOK, Body: "undecodable response: " + err.Error()}
	}
	return recs, nil
}

// Create adds a TEXT record for agent. Text is always sent, empty if unset;
// blank Image and CallbackURL are left out of the body. Not idempotent:
// repeating the call creates a duplicate upstream.
func (p *Proxy) Create(ctx context.Context, agent Agent, in CreateInput) (Record, error) {
	agentID, err := p.Resolve(agent)
	if err != nil {
		return Record{}, err
	}
	body := createBody{
		Type:        TypeText,
		Text:        in.Text,
		Image:       optional(in.Image),
		CallbackURL: optional(in.CallbackURL),
	}
	b, err := p.upstream.do(ctx, "create training", http.MethodPost, "/agent/"+url.PathEscape(agentID)+"/trainings", body)
	if err != nil {
		return Record{}, err
	}
	return decodeRecord("create training", b)
}

// Update rewrites a record as TEXT regardless of its stored type. Non-text
// records have to be deleted and created again; this is not hidden here.
func (p *Proxy) Update(ctx context.Context, trainingID string, in UpdateInput) (Record, error) {
	trainingID = strings.TrimSpace(trainingID)
	if trainingID == "" {
		return Record{}, &ValidationError{Field: "trainingId", Message: "training id is required"}
	}
	body := updateBody{
		Type:  TypeText,
		Text:  in.Text,
		Image: optional(in.Image),
	}
	b, err := p.upstream.do(ctx, "update training", http.MethodPut, "/training/"+url.PathEscape(trainingID), body)
	if err != nil {
		return Record{}, err
	}
	return decodeRecord("update training", b)
}

// Delete removes a record by id and returns upstream's confirmation body
// unchanged ("{}" when upstream sends nothing).
func (p *Proxy) Delete(ctx context.Context, trainingID string) (json.RawMessage, error) {
	trainingID = strings.TrimSpace(trainingID)
	if trainingID == "" {
		return nil, &ValidationError{Field: "trainingId", Message: "training id is required"}
	}
	b, err := p.upstream.do(ctx, "delete training", http.MethodDelete, "/training/"+url.PathEscape(trainingID), nil)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return json.RawMessage("{}"), nil
	}
	if !json.Valid(b) {
		return nil, &OperationError{Op: "delete training", Status: http.StatusOK, Body: "undecodable response: " + string(b)}
	}
	return json.RawMessage(b), nil
}

func decodeRecord(op string, b []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(b, &r); err != nil {
		return Record{}, &OperationError{Op: op, Status: http.StatusOK, Body: "undecodable response: " + err.Error()}
	}
	return r, nil
}
