// Command loadtest signs up simulated users against a running server, keeps
// a message stream open for each and sends messages, reporting how long it
// takes for a sent message to show up in the sender's own stream.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
)

type result struct {
	mu        sync.Mutex
	latencies []time.Duration
	failed    int
}

func (r *result) add(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latencies = append(r.latencies, d)
}

func (r *result) fail() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed++
}

func newClient() (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &http.Client{Jar: jar, Timeout: 0}, nil
}

func signup(ctx context.Context, c *http.Client, base string) error {
	name := "load-" + uuid.NewString()[:8]
	form := url.Values{
		"username":         {name},
		"email":            {name + "@loadtest.local"},
		"password":         {"loadtest-password"},
		"confirm_password": {"loadtest-password"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/account/signup", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")

	res, err := c.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close() //nolint:errcheck

	if res.Header.Get("HX-Redirect") != "/chat" {
		return fmt.Errorf("signup for %s rejected with status %d", name, res.StatusCode)
	}
	return nil
}

// stream forwards every messages event of the SSE stream to out.
func stream(ctx context.Context, c *http.Client, base string, out chan<- string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/chat/stream", nil)
	if err != nil {
		return err
	}
	res, err := c.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close() //nolint:errcheck

	sc := bufio.NewScanner(res.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	event := ""
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: ") && event == "messages":
			select {
			case out <- line:
			case <-ctx.Done():
				return nil
			}
		}
	}
	if ctx.Err() != nil {
		return nil
	}
	return sc.Err()
}

func send(ctx context.Context, c *http.Client, base, body string) error {
	form := url.Values{"content": {body}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/messages", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close() //nolint:errcheck

	if res.StatusCode != http.StatusCreated {
		return fmt.Errorf("send rejected with status %d", res.StatusCode)
	}
	return nil
}

func simulate(ctx context.Context, base string, messages int, interval time.Duration, res *result) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	if err := signup(ctx, c, base); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan string, 16)
	go func() {
		if err := stream(ctx, c, base, events); err != nil {
			log.Printf("stream ended: %v", err)
		}
	}()

	for i := range messages {
		marker := uuid.NewString()
		start := time.Now()
		if err := send(ctx, c, base, fmt.Sprintf("load message %d %s", i, marker)); err != nil {
			res.fail()
			continue
		}

		timeout := time.After(10 * time.Second)
	wait:
		for {
			select {
			case data := <-events:
				if strings.Contains(data, marker) {
					res.add(time.Since(start))
					break wait
				}
			case <-timeout:
				res.fail()
				break wait
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		time.Sleep(interval)
	}
	return nil
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[int(float64(len(sorted)-1)*p)]
}

func main() {
	base := flag.String("url", "http://localhost:8080", "server base URL")
	users := flag.Int("users", 20, "simulated users")
	messages := flag.Int("messages", 10, "messages per user")
	interval := flag.Duration("interval", 500*time.Millisecond, "pause between a user's messages")
	flag.Parse()

	ctx := context.Background()
	res := &result{}

	p := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(*users)
	for range *users {
		p.Go(func(ctx context.Context) error {
			return simulate(ctx, *base, *messages, *interval, res)
		})
	}

	err := p.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("some users failed: %v", err)
	}

	slices.Sort(res.latencies)
	log.Printf("delivered=%d failed=%d p50=%v p95=%v p99=%v",
		len(res.latencies), res.failed,
		percentile(res.latencies, 0.50),
		percentile(res.latencies, 0.95),
		percentile(res.latencies, 0.99))
}
