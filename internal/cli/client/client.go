package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to a trainhub server's /api surface.
type Client struct {
	baseURL string
	http    *http.Client
}

// ID is a training id. The server passes upstream ids through, and those
// may be JSON strings or numbers.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("training id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

type Training struct {
	ID        ID     `json:"id"`
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	Image     string `json:"image,omitempty"`
	Status    string `json:"status,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

type CreateTraining struct {
	Agent       string `json:"agent"`
	Text        string `json:"text"`
	Image       string `json:"image,omitempty"`
	CallbackURL string `json:"callbackUrl,omitempty"`
}

type UpdateTraining struct {
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
}

type Chat struct {
	Slug      string `json:"slug"`
	Label     string `json:"label"`
	IframeSrc string `json:"iframeSrc"`
}

type Status struct {
	Status    string   `json:"status"`
	Version   string   `json:"version"`
	Timestamp string   `json:"timestamp"`
	Agents    []string `json:"agents"`
}

// HTTPError is a non-2xx answer from the server.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %d", e.Status)
	}
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		http: &http.Client{
			// Unfiltered lists fan out upstream; leave room for four calls.
			Timeout: 60 * time.Second,
		},
	}
}

func (c *Client) Status(ctx context.Context) (Status, error) {
	var out Status
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &out)
	return out, err
}

func (c *Client) ListTrainings(ctx context.Context, agent, typeFilter string) ([]Training, error) {
	q := url.Values{}
	q.Set("agent", agent)
	if typeFilter != "" {
		q.Set("type", typeFilter)
	}
	var out []Training
	if err := c.do(ctx, http.MethodGet, "/api/trainings?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Training{}
	}
	return out, nil
}

func (c *Client) CreateTraining(ctx context.Context, in CreateTraining) (Training, error) {
	var out Training
	err := c.do(ctx, http.MethodPost, "/api/trainings", in, &out)
	return out, err
}

func (c *Client) UpdateTraining(ctx context.Context, id string, in UpdateTraining) (Training, error) {
	var out Training
	err := c.do(ctx, http.MethodPut, "/api/trainings/"+url.PathEscape(id), in, &out)
	return out, err
}

// DeleteTraining returns the server's confirmation verbatim.
func (c *Client) DeleteTraining(ctx context.Context, id string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, http.MethodDelete, "/api/trainings/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Chats(ctx context.Context) ([]Chat, error) {
	var out struct {
		Chats []Chat `json:"chats"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/chats", nil, &out); err != nil {
		return nil, err
	}
	return out.Chats, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		herr := &HTTPError{Status: resp.StatusCode}
		var payload map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
			if msg, ok := payload["error"].(string); ok {
				herr.Message = msg
			}
		}
		return herr
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
