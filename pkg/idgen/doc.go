// Package idgen 提供基于 Sonyflake 的资源 ID 生成器
package idgen
