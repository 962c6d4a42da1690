package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// AgendaKey returns the cache key for a subject's rendered agenda on one
// canonical date. Date is the "2006-01-02" canonical calendar date.
func (r *CacheKeyStruct) AgendaKey(subjectKind string, subjectID int, date string) string {
	return fmt.Sprintf("agenda:%s:%d:%s", subjectKind, subjectID, date)
}

var CacheKey = NewCacheKeyStruct()
