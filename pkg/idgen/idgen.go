package idgen

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sony/sonyflake"
)

// Generator 递增 ID 生成器
// 使用 Sonyflake 算法生成全局唯一且递增的 ID
type Generator struct {
	sf *sonyflake.Sonyflake
}

var (
	defaultGenerator     *Generator
	defaultGeneratorOnce sync.Once
)

// DefaultGenerator 返回默认的 ID 生成器
func DefaultGenerator() *Generator {
	defaultGeneratorOnce.Do(func() {
		defaultGenerator = New()
	})
	return defaultGenerator
}

// New 创建新的 ID 生成器
func New() *Generator {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) // 起始时间
	sf := sonyflake.NewSonyflake(sonyflake.Settings{
		StartTime: start,
	})
	if sf == nil {
		// 主机没有私有 IPv4 时取不到默认机器号，退回进程号
		sf = sonyflake.NewSonyflake(sonyflake.Settings{
			StartTime: start,
			MachineID: fallbackMachineID,
		})
	}

	return &Generator{
		sf: sf,
	}
}

// fallbackMachineID 网卡机器号不可用时的兜底
func fallbackMachineID() (uint16, error) {
	return uint16(os.Getpid()), nil
}

// GenerateServerID 生成游戏服务器 ID（格式：srv-{userID}-{递增 ID}）
// ID 一经生成不可变更，前缀加所有者标识保证可读性，递增后缀保证全局唯一
func (g *Generator) GenerateServerID(userID string) (string, error) {
	id, err := g.sf.NextID()
	if err != nil {
		return "", fmt.Errorf("generate server ID: %w", err)
	}
	return fmt.Sprintf("srv-%s-%d", userID, id), nil
}

// GenerateID 生成通用递增 ID
func (g *Generator) GenerateID() (uint64, error) {
	return g.sf.NextID()
}

// GenerateServerID 使用默认生成器生成游戏服务器 ID
func GenerateServerID(userID string) (string, error) {
	return DefaultGenerator().GenerateServerID(userID)
}

// GenerateID 使用默认生成器生成通用递增 ID
func GenerateID() (uint64, error) {
	return DefaultGenerator().GenerateID()
}
