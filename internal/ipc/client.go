package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func call[Resp any](c *Client, method string, req any) (*Resp, error) {
	var resp Resp
	if err := c.client.Call(ServiceName+"."+method, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Start starts or resumes the capture cycle.
func (c *Client) Start() (*StartResponse, error) {
	return call[StartResponse](c, "Start", StartRequest{})
}

// Stop removes the capture timer.
func (c *Client) Stop() (*StopResponse, error) {
	return call[StopResponse](c, "Stop", StopRequest{})
}

// Shutdown asks the daemon process to exit.
func (c *Client) Shutdown() (*ShutdownResponse, error) {
	return call[ShutdownResponse](c, "Shutdown", ShutdownRequest{})
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	return call[StatusResponse](c, "Status", StatusRequest{})
}

// Pause suspends the capture cycle.
func (c *Client) Pause() (*StateResponse, error) {
	return call[StateResponse](c, "Pause", StateRequest{})
}

// Resume restarts a paused capture cycle.
func (c *Client) Resume() (*StateResponse, error) {
	return call[StateResponse](c, "Resume", StateRequest{})
}

// Toggle flips the capture cycle between running and paused.
func (c *Client) Toggle() (*StateResponse, error) {
	return call[StateResponse](c, "Toggle", StateRequest{})
}

// Pair submits a pairing code.
func (c *Client) Pair(code string) (*PairResponse, error) {
	return call[PairResponse](c, "Pair", PairRequest{Code: code})
}

// ResetPairing clears the user binding.
func (c *Client) ResetPairing() (*PairResponse, error) {
	return call[PairResponse](c, "Pair", PairRequest{Reset: true})
}

// OutboxList lists outbox items, optionally filtered by status.
func (c *Client) OutboxList(statuses []string) (*OutboxListResponse, error) {
	return call[OutboxListResponse](c, "OutboxList", OutboxListRequest{Statuses: statuses})
}

// OutboxRetry resets failed items to pending.
func (c *Client) OutboxRetry(ids []int64) (*OutboxRetryResponse, error) {
	return call[OutboxRetryResponse](c, "OutboxRetry", OutboxRetryRequest{IDs: ids})
}

// OutboxPurge removes delivered items.
func (c *Client) OutboxPurge() (*OutboxPurgeResponse, error) {
	return call[OutboxPurgeResponse](c, "OutboxPurge", OutboxPurgeRequest{})
}

// TestNotification sends a test notification.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	return call[TestNotificationResponse](c, "TestNotification", TestNotificationRequest{})
}
