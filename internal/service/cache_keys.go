package service

import (
	"fmt"
	"time"
)

const bookCacheTTL = 5 * time.Minute

func bookCacheKey(id uint) string {
	return fmt.Sprintf("book:%d", id)
}
