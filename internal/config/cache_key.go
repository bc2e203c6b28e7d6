package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserSessionKey returns the cache key holding the jti of a user's current login.
func (r *CacheKeyStruct) UserSessionKey(userID int) string {
	return fmt.Sprintf("login:%d", userID)
}

// QuestionBankKey returns the cache key for the serialized question bank.
func (r *CacheKeyStruct) QuestionBankKey() string {
	return "questions:all"
}

// AuthRateLimitKey returns the counter key for auth requests from one client IP.
func (r *CacheKeyStruct) AuthRateLimitKey(ip string) string {
	return fmt.Sprintf("ratelimit:auth:%s", ip)
}

var CacheKey = NewCacheKeyStruct()
