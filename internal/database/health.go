package database

import (
	"context"
	"time"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Status reports the reachability of each backing store.
type Status struct {
	Postgres string `json:"postgres"`
	Redis    string `json:"redis"`
}

// OK reports whether every dependency is up.
func (s Status) OK() bool {
	return s.Postgres == "up" && s.Redis == "up"
}

// Check pings Postgres and Redis with a short timeout. redisPing is typically
// rdb.Ping(ctx).Err.
func Check(ctx context.Context, db Pinger, redisPing func(context.Context) error) Status {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	st := Status{Postgres: "up", Redis: "up"}
	if db == nil || db.Ping(ctx) != nil {
		st.Postgres = "down"
	}
	if redisPing == nil || redisPing(ctx) != nil {
		st.Redis = "down"
	}
	return st
}
