package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Address 是 API 监听地址
	// 可以通过环境变量 ORCH_ADDRESS 配置
	Address string `yaml:"address"`

	// DBPath 是 SQLite 数据库文件路径
	// 可以通过环境变量 ORCH_DB_PATH 配置
	// 默认：~/.local/share/orchestrator/orchestrator.db
	DBPath string `yaml:"db_path"`

	// PublicIP 是隧道对外暴露的公网 IP
	PublicIP string `yaml:"public_ip"`

	// PortRangeStart / PortRangeEnd 是每个节点上可分配的端口区间（闭区间）
	PortRangeStart int `yaml:"port_range_start"`
	PortRangeEnd   int `yaml:"port_range_end"`

	// HeartbeatTimeout 超过该时长没有心跳的节点被标记为离线
	// 默认 3 分钟，即 3 次 60 秒心跳未到
	HeartbeatTimeout time.Duration `yaml:"heartbeat_timeout"`

	// HealthCheckInterval 心跳检查循环的周期
	HealthCheckInterval time.Duration `yaml:"health_check_interval"`

	// AgentPort 是每个节点上 host agent 的监听端口
	AgentPort int `yaml:"agent_port"`

	// AgentTimeout 约束对 host agent 的每次远程调用
	AgentTimeout time.Duration `yaml:"agent_timeout"`

	// TunnelHost / TunnelPort / TunnelToken 是隧道实例管理器的地址和 API token
	TunnelHost  string `yaml:"tunnel_host"`
	TunnelPort  int    `yaml:"tunnel_port"`
	TunnelToken string `yaml:"tunnel_token"`

	// TunnelTimeout 约束对隧道管理器的每次远程调用
	TunnelTimeout time.Duration `yaml:"tunnel_timeout"`

	// AuthServiceURL 是认证服务的地址
	AuthServiceURL string `yaml:"auth_service_url"`

	// AuthTimeout 约束对认证服务的每次调用
	AuthTimeout time.Duration `yaml:"auth_timeout"`
}

// New 加载配置
// 优先级：环境变量 > ORCH_CONFIG 指定的 YAML 文件 > 默认值
func New() (*Config, error) {
	cfg := &Config{
		Address:             "0.0.0.0:8080",
		DBPath:              defaultDBPath(),
		PortRangeStart:      30000,
		PortRangeEnd:        35000,
		HeartbeatTimeout:    3 * time.Minute,
		HealthCheckInterval: 30 * time.Second,
		AgentPort:           8081,
		AgentTimeout:        15 * time.Second,
		TunnelPort:          7001,
		TunnelTimeout:       15 * time.Second,
		AuthServiceURL:      "http://auth-service:8082",
		AuthTimeout:         10 * time.Second,
	}

	// 1. 如果指定了配置文件，先加载文件
	if path := os.Getenv("ORCH_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// 2. 环境变量覆盖文件和默认值
	applyEnv(cfg)

	if cfg.PortRangeStart <= 0 || cfg.PortRangeEnd <= cfg.PortRangeStart {
		return nil, fmt.Errorf("invalid port range [%d, %d]", cfg.PortRangeStart, cfg.PortRangeEnd)
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	envStr("ORCH_ADDRESS", &cfg.Address)
	envStr("ORCH_DB_PATH", &cfg.DBPath)
	envStr("ORCH_PUBLIC_IP", &cfg.PublicIP)
	envInt("ORCH_PORT_RANGE_START", &cfg.PortRangeStart)
	envInt("ORCH_PORT_RANGE_END", &cfg.PortRangeEnd)
	envDuration("ORCH_HEARTBEAT_TIMEOUT", &cfg.HeartbeatTimeout)
	envDuration("ORCH_HEALTH_CHECK_INTERVAL", &cfg.HealthCheckInterval)
	envInt("ORCH_AGENT_PORT", &cfg.AgentPort)
	envDuration("ORCH_AGENT_TIMEOUT", &cfg.AgentTimeout)
	envStr("ORCH_TUNNEL_HOST", &cfg.TunnelHost)
	envInt("ORCH_TUNNEL_PORT", &cfg.TunnelPort)
	envStr("ORCH_TUNNEL_TOKEN", &cfg.TunnelToken)
	envDuration("ORCH_TUNNEL_TIMEOUT", &cfg.TunnelTimeout)
	envStr("ORCH_AUTH_SERVICE_URL", &cfg.AuthServiceURL)
	envDuration("ORCH_AUTH_TIMEOUT", &cfg.AuthTimeout)
}

func envStr(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

// defaultDBPath 获取默认数据库路径
func defaultDBPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "orchestrator", "orchestrator.db")
	}
	return filepath.Join(".", "data", "orchestrator.db")
}
