package browser

import (
	"context"
	"fmt"
	"net/http"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater"
	"github.com/go-pkgz/repeater/strategy"
	"github.com/go-pkgz/syncs"

	"github.com/umputun/fleetcheck/app/config"
)

//go:generate moq -out mocks/repeater.go -pkg mocks -skip-ensure -fmt goimports . Repeater

// Repeater repeats failed function
type Repeater interface {
	Do(ctx context.Context, fun func() error, errors ...error) (err error)
}

// Reachability is the result of one HEAD check
type Reachability struct {
	URL    string
	Status int
	Err    error
	Took   time.Duration
}

// OK is true for 2xx responses
func (r Reachability) OK() bool {
	return r.Err == nil && r.Status >= 200 && r.Status < 300
}

func (r Reachability) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s is not reachable: %v", r.URL, r.Err)
	}
	return fmt.Sprintf("%s responded with status %d in %v", r.URL, r.Status, r.Took.Round(time.Millisecond))
}

// Checker sends HEAD requests to targets, network errors are retried by the repeater
type Checker struct {
	Client      *http.Client
	Repeater    Repeater
	Concurrency int
}

// NewChecker makes Checker with per-request timeout and up to attempts tries with backoff
func NewChecker(timeout time.Duration, attempts int) *Checker {
	if attempts < 1 {
		attempts = 1
	}
	return &Checker{
		Client:      &http.Client{Timeout: timeout},
		Repeater:    repeater.New(&strategy.Backoff{Repeats: attempts, Duration: 250 * time.Millisecond, Factor: 2, Jitter: true}),
		Concurrency: 4,
	}
}

// Check sends HEAD to url. Non-2xx statuses are reported, not retried.
func (c *Checker) Check(ctx context.Context, url string) Reachability {
	res := Reachability{URL: url}
	st := time.Now()
	res.Err = c.Repeater.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, http.NoBody)
		if err != nil {
			return fmt.Errorf("make request: %w", err)
		}
		resp, err := c.Client.Do(req)
		if err != nil {
			return err
		}
		_ = resp.Body.Close()
		res.Status = resp.StatusCode
		return nil
	})
	res.Took = time.Since(st)
	return res
}

// CheckAll checks urls in parallel, results are in the order of urls
func (c *Checker) CheckAll(ctx context.Context, urls []string) []Reachability {
	res := make([]Reachability, len(urls))
	for i, u := range urls {
		res[i] = Reachability{URL: u, Err: context.Canceled}
	}
	gr := syncs.NewSizedGroup(max(c.Concurrency, 1), syncs.Context(ctx))
	for i, u := range urls {
		gr.Go(func(ctx context.Context) {
			res[i] = c.Check(ctx, u)
		})
	}
	gr.Wait()
	return res
}

// Preflight runs before scenarios: the base url is required, unreachable or failing targets are
// only logged as warnings
func Preflight(ctx context.Context, c *Checker, base string, extra ...string) ([]Reachability, error) {
	if base == "" {
		return nil, config.ErrNoBaseURL
	}
	results := c.CheckAll(ctx, append([]string{base}, extra...))
	for _, r := range results {
		if r.OK() {
			log.Printf("[DEBUG] preflight, %s", r)
			continue
		}
		log.Printf("[WARN] preflight, %s", r)
	}
	return results, nil
}
