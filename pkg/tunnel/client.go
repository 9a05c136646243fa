package tunnel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// HTTPManager 基于 HTTP 的隧道实例管理器客户端
// 通过配置的 host/port 寻址，API token 随每个请求传递
type HTTPManager struct {
	host       string
	port       int
	token      string
	httpClient *http.Client
}

// NewHTTPManager 创建隧道管理器客户端
func NewHTTPManager(host string, port int, token string, timeout time.Duration) *HTTPManager {
	return &HTTPManager{
		host:       host,
		port:       port,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (m *HTTPManager) url(path string) string {
	return fmt.Sprintf("http://%s:%d%s", m.host, m.port, path)
}

// CreateInstance 实现 Manager 接口
func (m *HTTPManager) CreateInstance(ctx context.Context, serverID string, gamePort, beaconPort int) (InstanceInfo, error) {
	body, err := json.Marshal(map[string]any{
		"server_id":   serverID,
		"game_port":   gamePort,
		"beacon_port": beaconPort,
		"token":       m.token,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url("/api/instances"), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call tunnel manager: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("tunnel manager returned status %d", resp.StatusCode)
	}

	var info InstanceInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode tunnel manager response: %w", err)
	}
	return info, nil
}

// RemoveInstance 实现 Manager 接口
func (m *HTTPManager) RemoveInstance(ctx context.Context, serverID string) error {
	u := m.url("/api/instances/"+serverID) + "?token=" + url.QueryEscape(m.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call tunnel manager: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("tunnel manager returned status %d", resp.StatusCode)
	}
	return nil
}

// GetClientConfig 实现 Manager 接口
func (m *HTTPManager) GetClientConfig(ctx context.Context, serverID, hostIP string) (string, error) {
	u := fmt.Sprintf("%s?host_ip=%s&token=%s",
		m.url("/api/instances/"+serverID+"/client-config"),
		url.QueryEscape(hostIP), url.QueryEscape(m.token))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call tunnel manager: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("tunnel manager returned status %d", resp.StatusCode)
	}

	var body struct {
		Config string `json:"config"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode tunnel manager response: %w", err)
	}
	if body.Config == "" {
		return "", fmt.Errorf("tunnel manager returned empty client config")
	}
	return body.Config, nil
}

// ListInstances 实现 Manager 接口
func (m *HTTPManager) ListInstances(ctx context.Context) ([]InstanceInfo, error) {
	u := m.url("/api/instances") + "?token=" + url.QueryEscape(m.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call tunnel manager: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("tunnel manager returned status %d", resp.StatusCode)
	}

	var body struct {
		Instances []InstanceInfo `json:"instances"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode tunnel manager response: %w", err)
	}
	return body.Instances, nil
}
