package bucketing

import (
	"hash"
	"sync"
	"time"

	"bandhan-service/internal/config"

	"github.com/spaolacci/murmur3"
)

// Manager assigns users and audit events to fixed-size buckets so hot
// partitions stay bounded in ScyllaDB and ClickHouse.
type Manager struct {
	userBuckets  int
	eventBuckets int
	hasherPool   sync.Pool
}

func NewManager(cfg *config.Config) *Manager {
	m := &Manager{
		userBuckets:  cfg.Bucketing.UserBuckets,
		eventBuckets: cfg.Bucketing.EventBuckets,
	}

	// Pool of hash functions to avoid allocation overhead
	m.hasherPool = sync.Pool{
		New: func() interface{} {
			return murmur3.New64()
		},
	}

	return m
}

// GetUserBucket returns a consistent bucket for a user (0 to userBuckets-1)
func (m *Manager) GetUserBucket(userID string) int {
	return m.getBucket(userID, m.userBuckets)
}

// GetEventBucket returns a bucket for audit events
func (m *Manager) GetEventBucket(identifier string) int {
	return m.getBucket(identifier, m.eventBuckets)
}

// GetTimeBucket returns the time bucket for OTP rate limiting windows
func (m *Manager) GetTimeBucket(windowSeconds int) int64 {
	return time.Now().Unix() / int64(windowSeconds) * int64(windowSeconds)
}

// GetDateBucket returns the UTC date bucket for events
func (m *Manager) GetDateBucket() string {
	return time.Now().UTC().Format("2006-01-02")
}

func (m *Manager) getBucket(key string, numBuckets int) int {
	hasher := m.hasherPool.Get().(hash.Hash64)
	defer m.hasherPool.Put(hasher)

	hasher.Reset()
	hasher.Write([]byte(key))
	return int(hasher.Sum64() % uint64(numBuckets))
}
