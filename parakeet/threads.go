package parakeet

import (
	"context"
	"fmt"
	"net/http"
)

// CreateThread creates a new thread, optionally seeded with messages.
func (c *Client) CreateThread(ctx context.Context, req CreateThreadRequest) (*Thread, error) {
	var thread Thread
	if _, err := c.do(ctx, "CreateThread", http.MethodPost, "/threads", nil, req, &thread); err != nil {
		return nil, err
	}
	return &thread, nil
}

// RetrieveThread fetches a thread by ID.
func (c *Client) RetrieveThread(ctx context.Context, threadID string) (*Thread, error) {
	if threadID == "" {
		return nil, newError(ErrCodeInvalidRequest, "thread_id is required")
	}
	var thread Thread
	path := fmt.Sprintf("/threads/%s", threadID)
	if _, err := c.do(ctx, "RetrieveThread", http.MethodGet, path, nil, nil, &thread); err != nil {
		return nil, err
	}
	return &thread, nil
}

// DeleteThread deletes a thread and everything on it.
func (c *Client) DeleteThread(ctx context.Context, threadID string) (*DeletionStatus, error) {
	if threadID == "" {
		return nil, newError(ErrCodeInvalidRequest, "thread_id is required")
	}
	var status DeletionStatus
	path := fmt.Sprintf("/threads/%s", threadID)
	if _, err := c.do(ctx, "DeleteThread", http.MethodDelete, path, nil, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// CreateMessage appends a message to a thread.
func (c *Client) CreateMessage(ctx context.Context, threadID string, req CreateMessageRequest) (*Message, error) {
	if threadID == "" {
		return nil, newError(ErrCodeInvalidRequest, "thread_id is required")
	}
	var msg Message
	path := fmt.Sprintf("/threads/%s/messages", threadID)
	if _, err := c.do(ctx, "CreateMessage", http.MethodPost, path, nil, req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListMessages returns one page of messages on a thread.
func (c *Client) ListMessages(ctx context.Context, threadID string, params ListParams) (*Page[Message], error) {
	if threadID == "" {
		return nil, newError(ErrCodeInvalidRequest, "thread_id is required")
	}
	var envelope listEnvelope[Message]
	path := fmt.Sprintf("/threads/%s/messages", threadID)
	if _, err := c.do(ctx, "ListMessages", http.MethodGet, path, params.query(), nil, &envelope); err != nil {
		return nil, err
	}
	return pageFromEnvelope(envelope), nil
}

// NewMessagesPaginator pages through all messages on a thread.
func NewMessagesPaginator(c *Client, threadID string, params ListParams) *Paginator[Message] {
	return newPaginator(params.After, func(ctx context.Context, after string) (*Page[Message], error) {
		p := params
		p.After = after
		return c.ListMessages(ctx, threadID, p)
	})
}
