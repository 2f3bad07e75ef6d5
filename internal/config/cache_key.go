package config

import (
	"fmt"
	"time"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// LoginAttemptsKey returns the fixed-window counter key for auth attempts
// from one client IP. The window start is part of the key so counters never
// need resetting.
func (r *CacheKeyStruct) LoginAttemptsKey(ip string, window time.Time) string {
	return fmt.Sprintf("auth:attempts:%s:%d", ip, window.Unix())
}

var CacheKey = NewCacheKeyStruct()
