// Package chatclient is the Go client for the chat widget backend: a thin
// REST client, a reconnecting websocket, and a Controller that drives the
// scripted intake flow the way the deployed widgets do.
package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"eventchat-backend/internal/models"

	"github.com/google/uuid"
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// APIClient talks to the backend's REST surface.
type APIClient struct {
	baseURL string
	http    *http.Client
}

// NewAPIClient creates a client for the given base URL, e.g.
// "http://localhost:8080".
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var buf *bytes.Buffer
	if body != nil {
		buf = &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr models.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return &APIError{Status: resp.StatusCode, Message: apiErr.Error}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// CreateConversation starts a new conversation for a visitor.
func (c *APIClient) CreateConversation(ctx context.Context, req models.CreateConversationRequest) (*models.ConversationResponse, error) {
	var out models.ConversationResponse
	if err := c.do(ctx, http.MethodPost, "/api/conversations", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetConversation fetches a conversation's persisted state.
func (c *APIClient) GetConversation(ctx context.Context, id uuid.UUID) (*models.ConversationResponse, error) {
	var out models.ConversationResponse
	if err := c.do(ctx, http.MethodGet, "/api/conversations/"+id.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateConversationFields applies a partial intake field update.
func (c *APIClient) UpdateConversationFields(ctx context.Context, id uuid.UUID, req models.UpdateConversationRequest) (*models.ConversationResponse, error) {
	var out models.ConversationResponse
	if err := c.do(ctx, http.MethodPatch, "/api/conversations/"+id.String(), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PostMessage appends a message to a conversation's transcript.
func (c *APIClient) PostMessage(ctx context.Context, conversationID uuid.UUID, req models.CreateMessageRequest) (*models.MessageResponse, error) {
	var out models.MessageResponse
	if err := c.do(ctx, http.MethodPost, "/api/conversations/"+conversationID.String()+"/messages", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListMessages fetches a conversation's transcript in creation order.
func (c *APIClient) ListMessages(ctx context.Context, conversationID uuid.UUID) (*models.ListMessagesResponse, error) {
	var out models.ListMessagesResponse
	if err := c.do(ctx, http.MethodGet, "/api/conversations/"+conversationID.String()+"/messages", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RequestLiveAgent asks for a hand-off to a human agent.
func (c *APIClient) RequestLiveAgent(ctx context.Context, conversationID uuid.UUID) (*models.ConversationResponse, error) {
	var out models.ConversationResponse
	if err := c.do(ctx, http.MethodPost, "/api/conversations/"+conversationID.String()+"/request-live-agent", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateLead submits a sales lead.
func (c *APIClient) CreateLead(ctx context.Context, req models.CreateLeadRequest) (*models.LeadResponse, error) {
	var out models.LeadResponse
	if err := c.do(ctx, http.MethodPost, "/api/leads", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
