package router

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdle = 3 * time.Minute

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiters keeps one token bucket per client address and forgets idle clients.
type clientLimiters struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	clients map[string]*client
	swept   time.Time
}

func newClientLimiters(limit rate.Limit, burst int) *clientLimiters {
	return &clientLimiters{limit: limit, burst: burst, clients: make(map[string]*client), swept: time.Now()}
}

func (c *clientLimiters) get(addr string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if now.Sub(c.swept) > limiterIdle {
		for k, v := range c.clients {
			if now.Sub(v.lastSeen) > limiterIdle {
				delete(c.clients, k)
			}
		}
		c.swept = now
	}

	cl, ok := c.clients[addr]
	if !ok {
		cl = &client{limiter: rate.NewLimiter(c.limit, c.burst)}
		c.clients[addr] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}
