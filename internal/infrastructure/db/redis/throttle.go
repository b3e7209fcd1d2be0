package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultMaxAttempts = 5
	defaultWindow      = 15 * time.Minute
)

// attemptScript counts an attempt and starts the window on the first one.
// Running both steps in one script keeps concurrent attempts from reading a
// stale count.
var attemptScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// LoginThrottle counts login attempts per email in a fixed window.
// Key format: login_attempts:<email>
type LoginThrottle struct {
	client      redis.Cmdable
	maxAttempts int
	window      time.Duration
}

// NewLoginThrottle wraps client. Non-positive limits fall back to defaults.
func NewLoginThrottle(client redis.Cmdable, maxAttempts int, window time.Duration) *LoginThrottle {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if window <= 0 {
		window = defaultWindow
	}
	return &LoginThrottle{client: client, maxAttempts: maxAttempts, window: window}
}

// Attempt registers one login attempt for email and reports whether it is
// within the limit. The window starts at the first attempt and is not
// extended by later ones.
func (t *LoginThrottle) Attempt(ctx context.Context, email string) (bool, error) {
	n, err := attemptScript.Run(ctx, t.client, []string{t.key(email)}, t.window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("throttle attempt: %w", err)
	}
	return n <= int64(t.maxAttempts), nil
}

// Reset clears the counter after a successful login.
func (t *LoginThrottle) Reset(ctx context.Context, email string) error {
	return t.client.Del(ctx, t.key(email)).Err()
}

func (t *LoginThrottle) key(email string) string {
	return "login_attempts:" + email
}
