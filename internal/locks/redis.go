package locks

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Mugambi-md/Orion-sub000/internal/shared"
)

// ErrHeld indicates another holder owns the lock.
var ErrHeld = errors.New("locks: already held")

// DefaultTTL bounds how long a crashed holder can block a fiscal year.
const DefaultTTL = 2 * time.Minute

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// YearLocker serialises year-end operations across processes with SET NX PX.
type YearLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewYearLocker constructs a locker; a zero ttl selects DefaultTTL.
func NewYearLocker(client *redis.Client, ttl time.Duration) *YearLocker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &YearLocker{client: client, ttl: ttl}
}

// Acquire takes the lock for year. The returned release only deletes the key
// while it still carries this holder's token.
func (l *YearLocker) Acquire(ctx context.Context, year int) (func(context.Context) error, error) {
	if l == nil || l.client == nil {
		return func(context.Context) error { return nil }, nil
	}
	key := shared.FiscalYearLockKey(year)
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrHeld
	}
	return func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}, nil
}
