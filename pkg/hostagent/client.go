package hostagent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient 基于 HTTP 的 host agent 客户端
// agent 通过 node.ipAddress + 固定端口寻址
type HTTPClient struct {
	port       int
	httpClient *http.Client
}

// NewHTTPClient 创建 host agent 客户端
// timeout 约束每次远程调用，超时等同于远程失败
func NewHTTPClient(port int, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		port:       port,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) url(nodeIP, path string) string {
	return fmt.Sprintf("http://%s:%d%s", nodeIP, c.port, path)
}

// postJSON 发送 JSON 请求并解析响应
// out 为 nil 时丢弃响应体
func (c *HTTPClient) postJSON(ctx context.Context, url string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call host agent: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("host agent returned status %d", resp.StatusCode)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode host agent response: %w", err)
	}
	return nil
}

// Spawn 实现 Client 接口
func (c *HTTPClient) Spawn(ctx context.Context, nodeIP string, req *SpawnRequest) (*SpawnResponse, error) {
	var resp SpawnResponse
	if err := c.postJSON(ctx, c.url(nodeIP, "/api/containers/spawn"), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Start 实现 Client 接口
func (c *HTTPClient) Start(ctx context.Context, nodeIP, serverID string) error {
	return c.postJSON(ctx, c.url(nodeIP, "/api/containers/start"),
		map[string]string{"serverId": serverID}, nil)
}

// Stop 实现 Client 接口
func (c *HTTPClient) Stop(ctx context.Context, nodeIP, serverID string) error {
	return c.postJSON(ctx, c.url(nodeIP, "/api/containers/stop"),
		map[string]string{"serverId": serverID}, nil)
}

// Restart 实现 Client 接口
func (c *HTTPClient) Restart(ctx context.Context, nodeIP, serverID string) error {
	return c.postJSON(ctx, c.url(nodeIP, "/api/containers/restart"),
		map[string]string{"serverId": serverID}, nil)
}

// Remove 实现 Client 接口
func (c *HTTPClient) Remove(ctx context.Context, nodeIP, serverID string) error {
	return c.postJSON(ctx, c.url(nodeIP, "/api/containers/remove"),
		map[string]string{"serverId": serverID}, nil)
}

// Status 实现 Client 接口
func (c *HTTPClient) Status(ctx context.Context, nodeIP, serverID string) (WorkloadStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.url(nodeIP, "/api/containers/"+serverID+"/status"), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call host agent: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("host agent returned status %d", resp.StatusCode)
	}

	var status WorkloadStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode host agent response: %w", err)
	}
	return status, nil
}

// UpdateConfig 实现 Client 接口
func (c *HTTPClient) UpdateConfig(ctx context.Context, nodeIP, serverID string, config map[string]any) error {
	return c.postJSON(ctx, c.url(nodeIP, "/api/containers/"+serverID+"/config"),
		map[string]any{"serverId": serverID, "config": config}, nil)
}

// ConfigureTunnelClient 实现 Client 接口
func (c *HTTPClient) ConfigureTunnelClient(ctx context.Context, nodeIP, serverID, clientConfig string) error {
	return c.postJSON(ctx, c.url(nodeIP, "/api/tunnel/clients/"+serverID+"/configure"),
		map[string]any{"serverId": serverID, "clientConfig": clientConfig}, nil)
}

// StopTunnelClient 实现 Client 接口
func (c *HTTPClient) StopTunnelClient(ctx context.Context, nodeIP, serverID string) error {
	return c.postJSON(ctx, c.url(nodeIP, "/api/tunnel/clients/"+serverID+"/stop"), nil, nil)
}
