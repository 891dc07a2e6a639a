package utils

import (
	"context"
	"sync"
	"time"
)

// OAuth state tokens only need to survive one browser round trip to the
// provider and back; ten minutes is generous.
const oauthStateTTL = 10 * time.Minute

const oauthStateKeyPrefix = "oauth:state:"

var (
	localStates   = map[string]time.Time{}
	localStatesMu sync.Mutex
)

// SaveState records an OAuth state token for later single-use validation.
// Redis keeps the token visible across instances; when the write fails the
// token is kept in process memory so single-instance deployments still work.
func SaveState(state string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := GetRedis().Set(ctx, oauthStateKeyPrefix+state, "1", oauthStateTTL).Err(); err == nil {
		return
	}

	localStatesMu.Lock()
	defer localStatesMu.Unlock()
	now := time.Now()
	for s, exp := range localStates {
		if now.After(exp) {
			delete(localStates, s)
		}
	}
	localStates[state] = now.Add(oauthStateTTL)
}

// ConsumeState reports whether state was previously saved and removes it,
// so a state token can never be replayed.
func ConsumeState(state string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if v, err := GetRedis().GetDel(ctx, oauthStateKeyPrefix+state).Result(); err == nil {
		return v != ""
	}

	localStatesMu.Lock()
	exp, ok := localStates[state]
	if ok {
		delete(localStates, state)
	}
	localStatesMu.Unlock()
	return ok && time.Now().Before(exp)
}
