// README: Smoke and load cases: environment, booking ledger, cancellation fees and throughput.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"maliride/internal/infra"
)

const (
	StatusPass = "PASS"
	StatusFail = "FAIL"
	StatusSkip = "SKIP"
)

var bamako = map[string]float64{"lat": 12.6392, "lng": -8.0029}

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client

	// driver is registered by the first API case and reused by the rest.
	driver string
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

type tripResp struct {
	ID                 string `json:"id"`
	Status             string `json:"status"`
	FinalPrice         int64  `json:"final_price"`
	PlatformCommission int64  `json:"platform_commission"`
	DriverEarnings     int64  `json:"driver_earnings"`
	CancellationFee    *int64 `json:"cancellation_fee"`
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:    cfg,
		httpc:  &http.Client{Timeout: 10 * time.Second},
		driver: fmt.Sprintf("bench_%d", time.Now().UnixNano()),
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))

	for _, tc := range tests {
		start := time.Now()
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		if res.Latency == 0 {
			res.Latency = time.Since(start)
		}
		results = append(results, res)
		fmt.Printf("%-5s %s (%s)", res.Status, tc.Name, res.Latency.Round(time.Millisecond))
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}
	return results
}

func (r *Runner) cases() []TestCase {
	return []TestCase{
		{
			Name: "Env: Postgres connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: StatusSkip, Note: "db not configured"}
				}
				if err := r.db.Ping(ctx); err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				return Result{Status: StatusPass}
			},
		},
		{
			Name: "Env: Redis connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: StatusSkip, Note: "redis not configured"}
				}
				if err := r.redis.Ping(ctx).Err(); err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				return Result{Status: StatusPass}
			},
		},
		{
			Name: "Migration: apply (optional)",
			Run: func(ctx context.Context, r *Runner) Result {
				if !r.cfg.ApplyMigration || r.cfg.DSN == "" {
					return Result{Status: StatusSkip, Note: "disabled"}
				}
				if err := infra.Migrate(r.cfg.DSN); err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				return Result{Status: StatusPass}
			},
		},
		{
			Name: "Migration: tables exist",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: StatusSkip, Note: "db not configured"}
				}
				for _, table := range []string{"drivers", "trips"} {
					var exists bool
					err := r.db.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, "public."+table).Scan(&exists)
					if err != nil {
						return Result{Status: StatusFail, Note: err.Error()}
					}
					if !exists {
						return Result{Status: StatusFail, Note: "missing table " + table}
					}
				}
				return Result{Status: StatusPass}
			},
		},
		{
			Name: "API: server reachable",
			Run: func(ctx context.Context, r *Runner) Result {
				code, _, err := r.do(ctx, http.MethodGet, "/health", nil)
				return expectStatus(code, err, http.StatusOK)
			},
		},
		{
			Name: "API: register driver",
			Run: func(ctx context.Context, r *Runner) Result {
				code, _, err := r.do(ctx, http.MethodPost, "/api/drivers", map[string]any{
					"username": r.driver, "first_name": "Bench", "last_name": "Runner",
					"age": 30, "city": "Bamako", "transport_type": "Moto",
				})
				return expectStatus(code, err, http.StatusCreated)
			},
		},
		{
			Name: "API: quote base fare",
			Run: func(ctx context.Context, r *Runner) Result {
				code, body, err := r.do(ctx, http.MethodGet,
					"/api/quote?pickup_lat=12.6392&pickup_lng=-8.0029&dropoff_lat=12.6392&dropoff_lng=-8.0029&promo_code=welcome50", nil)
				if res := expectStatus(code, err, http.StatusOK); res.Status != StatusPass {
					return res
				}
				var q struct {
					PriceBeforeDiscount int64 `json:"price_before_discount"`
					FinalPrice          int64 `json:"final_price"`
				}
				if err := json.Unmarshal(body, &q); err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				if q.PriceBeforeDiscount != 500 || q.FinalPrice != 250 {
					return Result{Status: StatusFail, Note: fmt.Sprintf("got %d/%d, want 500/250", q.PriceBeforeDiscount, q.FinalPrice)}
				}
				return Result{Status: StatusPass}
			},
		},
		{
			Name: "Ledger: first trip split 70/430",
			Run: func(ctx context.Context, r *Runner) Result {
				t, res := r.book(ctx)
				if t == nil {
					return res
				}
				if t.FinalPrice != 500 || t.PlatformCommission != 70 || t.DriverEarnings != 430 {
					return Result{Status: StatusFail, Note: fmt.Sprintf("got %d = %d + %d", t.FinalPrice, t.PlatformCommission, t.DriverEarnings)}
				}
				return Result{Status: StatusPass}
			},
		},
		{
			Name: "Cancellation: late passenger fee",
			Run: func(ctx context.Context, r *Runner) Result {
				t, res := r.book(ctx)
				if t == nil {
					return res
				}
				got, res := r.cancel(ctx, t.ID, "passenger")
				if got == nil {
					return res
				}
				if got.CancellationFee == nil || *got.CancellationFee != 375 || got.DriverEarnings != 0 {
					return Result{Status: StatusFail, Note: fmt.Sprintf("unexpected cancellation %+v", got)}
				}
				return Result{Status: StatusPass}
			},
		},
		{
			Name: "Cancellation: driver penalty",
			Run: func(ctx context.Context, r *Runner) Result {
				t, res := r.book(ctx)
				if t == nil {
					return res
				}
				code, body, err := r.do(ctx, http.MethodPost, "/api/trips/"+t.ID+"/cancel/driver", nil)
				if res := expectStatus(code, err, http.StatusOK); res.Status != StatusPass {
					return res
				}
				var out struct {
					Trip   tripResp `json:"trip"`
					Driver struct {
						Rating      float64 `json:"rating"`
						CancelCount int     `json:"cancel_count"`
					} `json:"driver"`
				}
				if err := json.Unmarshal(body, &out); err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				if out.Trip.CancellationFee == nil || *out.Trip.CancellationFee != 175 || out.Driver.CancelCount < 1 {
					return Result{Status: StatusFail, Note: fmt.Sprintf("unexpected result %+v", out)}
				}
				return Result{Status: StatusPass, Note: fmt.Sprintf("rating=%.2f", out.Driver.Rating)}
			},
		},
		{
			Name: "Redis: activity index populated",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: StatusSkip, Note: "redis not configured"}
				}
				n, err := r.redis.ZCard(ctx, fmt.Sprintf("driver:%s:trips", r.driver)).Result()
				if err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				if n == 0 {
					return Result{Status: StatusFail, Note: "no entries; is the API configured with redis?"}
				}
				return Result{Status: StatusPass, Note: fmt.Sprintf("entries=%d", n)}
			},
		},
		{
			Name: "Concurrency: passenger vs driver cancel",
			Run:  concurrentCancel,
		},
		{
			Name: "Perf: quote throughput",
			Run: func(ctx context.Context, r *Runner) Result {
				return perfLoad(ctx, r, http.MethodGet, "/api/quote?pickup_lat=12.6392&pickup_lng=-8.0029&dropoff_lat=12.65&dropoff_lng=-7.99", nil)
			},
		},
		{
			Name: "Perf: booking throughput",
			Run: func(ctx context.Context, r *Runner) Result {
				return perfLoad(ctx, r, http.MethodPost, "/api/trips", r.bookPayload())
			},
		},
	}
}

func (r *Runner) bookPayload() map[string]any {
	return map[string]any{"driver_id": r.driver, "pickup": bamako, "dropoff": bamako, "city": "Bamako", "client_app": "bench"}
}

func (r *Runner) book(ctx context.Context) (*tripResp, Result) {
	code, body, err := r.do(ctx, http.MethodPost, "/api/trips", r.bookPayload())
	if res := expectStatus(code, err, http.StatusCreated); res.Status != StatusPass {
		return nil, res
	}
	var t tripResp
	if err := json.Unmarshal(body, &t); err != nil {
		return nil, Result{Status: StatusFail, Note: err.Error()}
	}
	return &t, Result{Status: StatusPass}
}

func (r *Runner) cancel(ctx context.Context, id, actor string) (*tripResp, Result) {
	code, body, err := r.do(ctx, http.MethodPost, "/api/trips/"+id+"/cancel/"+actor, nil)
	if res := expectStatus(code, err, http.StatusOK); res.Status != StatusPass {
		return nil, res
	}
	var t tripResp
	if err := json.Unmarshal(body, &t); err != nil {
		return nil, Result{Status: StatusFail, Note: err.Error()}
	}
	return &t, Result{Status: StatusPass}
}

func (r *Runner) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.cfg.BaseURL+path, rd)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	return resp.StatusCode, b, err
}

func expectStatus(code int, err error, want int) Result {
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	if code != want {
		return Result{Status: StatusFail, Note: fmt.Sprintf("status=%d want=%d", code, want)}
	}
	return Result{Status: StatusPass}
}

// concurrentCancel fires passenger and driver cancellations at one trip; exactly one may win.
func concurrentCancel(ctx context.Context, r *Runner) Result {
	t, res := r.book(ctx)
	if t == nil {
		return res
	}
	var wg sync.WaitGroup
	var mu sync.Mutex
	succ := 0
	for i := 0; i < r.cfg.Concurrency; i++ {
		actor := "passenger"
		if i%2 == 1 {
			actor = "driver"
		}
		wg.Add(1)
		go func(actor string) {
			defer wg.Done()
			code, _, err := r.do(ctx, http.MethodPost, "/api/trips/"+t.ID+"/cancel/"+actor, nil)
			if err == nil && code == http.StatusOK {
				mu.Lock()
				succ++
				mu.Unlock()
			}
		}(actor)
	}
	wg.Wait()

	if succ != 1 {
		return Result{Status: StatusFail, Note: fmt.Sprintf("success=%d", succ)}
	}
	return Result{Status: StatusPass, Note: fmt.Sprintf("attempts=%d", r.cfg.Concurrency)}
}

func perfLoad(ctx context.Context, r *Runner, method, path string, payload any) Result {
	end := time.Now().Add(r.cfg.Duration)
	var count, errCount int64
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				code, _, err := r.do(ctx, method, path, payload)
				mu.Lock()
				if err != nil || code >= 400 {
					errCount++
				} else {
					count++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if count == 0 {
		return Result{Status: StatusFail, Note: "no requests completed"}
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return Result{Status: StatusPass, Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount)}
}
