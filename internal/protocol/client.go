package protocol

import (
	"context"
	"fmt"
)

// Dispatcher answers requests. *Server implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, req Message) Message
}

// Notifier delivers notifications. *Server implements it.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

var (
	_ Dispatcher = (*Server)(nil)
	_ Notifier   = (*Server)(nil)
)

// Client is the caller-side facade over a server.
type Client struct {
	server Dispatcher
}

// NewClient creates a client bound to server.
func NewClient(server Dispatcher) *Client {
	return &Client{server: server}
}

// Call sends method with params and returns the handler's result unchanged.
// A server error message is returned as a *CallError.
func (c *Client) Call(ctx context.Context, method string, params Params) (any, error) {
	req := NewRequest(method, params)
	resp := c.server.Dispatch(ctx, req)

	if resp.ID != req.ID {
		return nil, &CallError{
			Kind:   InvalidRequest,
			Detail: fmt.Sprintf("response id %q does not match request id %q", resp.ID, req.ID),
			Method: method,
			ID:     req.ID,
		}
	}

	switch resp.Kind {
	case KindResponse:
		return resp.Result, nil
	case KindError:
		body := resp.Error
		if body == nil {
			body = &ErrorBody{Kind: ToolExecutionFailed, Detail: "error without body"}
		}
		return nil, &CallError{
			Kind:   body.Kind,
			Detail: body.Detail,
			Method: method,
			ID:     req.ID,
		}
	default:
		return nil, &CallError{
			Kind:   InvalidRequest,
			Detail: fmt.Sprintf("unexpected %s message in reply", resp.Kind),
			Method: method,
			ID:     req.ID,
		}
	}
}

// CallText calls method and unwraps a text result. A map result is read at
// field, which lets tools return structured payloads with a text body.
func (c *Client) CallText(ctx context.Context, method string, params Params, field string) (string, error) {
	result, err := c.Call(ctx, method, params)
	if err != nil {
		return "", err
	}
	switch v := result.(type) {
	case string:
		return v, nil
	case map[string]any:
		if s, ok := v[field].(string); ok {
			return s, nil
		}
		return "", &CallError{Kind: ToolExecutionFailed, Detail: fmt.Sprintf("result has no text field %q", field), Method: method}
	case map[string]string:
		if s, ok := v[field]; ok {
			return s, nil
		}
		return "", &CallError{Kind: ToolExecutionFailed, Detail: fmt.Sprintf("result has no text field %q", field), Method: method}
	case nil:
		return "", nil
	default:
		return fmt.Sprint(v), nil
	}
}

// Notify sends a notification through the server if it supports them.
func (c *Client) Notify(ctx context.Context, method string, params Params) error {
	n, ok := c.server.(Notifier)
	if !ok {
		return nil
	}
	return n.Notify(ctx, NewNotification(method, params))
}
