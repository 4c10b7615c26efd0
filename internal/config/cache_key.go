package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// LearnerSessionKey returns the cache key for a learner's login session
func (r *CacheKeyStruct) LearnerSessionKey(learnerID int) string {
	return fmt.Sprintf("login:%d", learnerID)
}

// SessionElapsedKey returns the cache key for an exam session's elapsed seconds
func (r *CacheKeyStruct) SessionElapsedKey(sessionID string) string {
	return fmt.Sprintf("session:%s:elapsed", sessionID)
}

// SessionAnswersKey returns the cache key for an exam session's answers hash
func (r *CacheKeyStruct) SessionAnswersKey(sessionID string) string {
	return fmt.Sprintf("session:%s:answers", sessionID)
}

// SessionFlagsKey returns the cache key for an exam session's flagged questions
func (r *CacheKeyStruct) SessionFlagsKey(sessionID string) string {
	return fmt.Sprintf("session:%s:flags", sessionID)
}

// ExamPayloadKey returns the cache key for an exam's learner-facing payload
func (r *CacheKeyStruct) ExamPayloadKey(examID string) string {
	return fmt.Sprintf("exam:%s:payload", examID)
}

var CacheKey = NewCacheKeyStruct()
