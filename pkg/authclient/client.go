package authclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/forgehost/orchestrator/pkg/apierror"
)

// Client 认证服务客户端接口
type Client interface {
	// Validate 校验凭证并返回调用者身份
	// 凭证缺失或无效时返回 apierror.ErrUnauthorized
	Validate(ctx context.Context, token string) (*Identity, error)
}

// HTTPClient 基于 HTTP 的认证服务客户端
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient 创建认证服务客户端
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Validate 实现 Client 接口
func (c *HTTPClient) Validate(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, apierror.ErrUnauthorized
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/auth/validate", nil)
	if err != nil {
		return nil, apierror.WrapError(apierror.ErrInternalError, fmt.Errorf("build auth request: %w", err))
	}
	req.Header.Set("Authorization", token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apierror.WrapError(apierror.ErrUnauthorized, fmt.Errorf("auth service unreachable: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, apierror.ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apierror.WrapError(apierror.ErrUnauthorized,
			fmt.Errorf("auth service returned status %d", resp.StatusCode))
	}

	var identity Identity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return nil, apierror.WrapError(apierror.ErrInternalError, fmt.Errorf("decode auth response: %w", err))
	}

	return &identity, nil
}
