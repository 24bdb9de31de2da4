// Package bench drives concurrent increments at a server and checks none are lost.
package bench

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/eclesh/welford"
	"github.com/practable/hitcounter/pkg/client"
	log "github.com/sirupsen/logrus"
)

// Config specifies the load to apply
type Config struct {
	Name       string
	Workers    int
	Increments int // per worker
}

// Stats summarises request latency, in seconds
type Stats struct {
	Count  uint64  `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Stddev float64 `json:"stddev"`
}

// Report is the outcome of a run
type Report struct {
	Name     string        `json:"name"`
	Initial  int64         `json:"initial"`
	Expected int64         `json:"expected"`
	Got      int64         `json:"got"`
	Errors   int64         `json:"errors"` // increments whose outcome is unknown
	Elapsed  time.Duration `json:"elapsed"`
	Latency  Stats         `json:"latency"`
}

// OK is true when every successful increment is reflected in the final value.
// A failed increment may or may not have been applied by the server, e.g. when
// the response timed out, so each one widens the accepted range by one.
func (r Report) OK() bool {
	return r.Got >= r.Expected && r.Got <= r.Expected+r.Errors
}

func (r Report) expected() string {
	if r.Errors == 0 {
		return humanize.Comma(r.Expected)
	}
	return humanize.Comma(r.Expected) + ".." + humanize.Comma(r.Expected+r.Errors)
}

func (r Report) String() string {

	rate := 0.0
	if r.Elapsed > 0 {
		rate = float64(r.Latency.Count) / r.Elapsed.Seconds()
	}

	return fmt.Sprintf("counter %s: expected %s got %s (ok=%t), %s errors, %s requests in %s (%s/s), latency mean %s stddev %s min %s max %s",
		r.Name,
		r.expected(),
		humanize.Comma(r.Got),
		r.OK(),
		humanize.Comma(r.Errors),
		humanize.Comma(int64(r.Latency.Count)),
		r.Elapsed.Round(time.Millisecond),
		humanize.CommafWithDigits(rate, 1),
		seconds(r.Latency.Mean),
		seconds(r.Latency.Stddev),
		seconds(r.Latency.Min),
		seconds(r.Latency.Max),
	)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second)).Round(time.Microsecond)
}

// Run creates the counter if needed, then has each worker increment it, and
// finally reads it back to compare against the number of successful increments.
// Each increment is attempted once.
func Run(ctx context.Context, c *client.Client, config Config) (Report, error) {

	if config.Workers < 1 || config.Increments < 1 {
		return Report{}, errors.New("workers and increments must both be at least one")
	}

	report := Report{Name: config.Name}

	_, err := c.Create(ctx, config.Name)

	switch {
	case errors.Is(err, client.ErrAlreadyExists):
		report.Initial, err = c.Read(ctx, config.Name)
		if err != nil {
			return report, err
		}
	case err != nil:
		return report, err
	}

	var mu sync.Mutex
	latency := welford.New()
	var ok, failed int64

	var wg sync.WaitGroup
	wg.Add(config.Workers)

	start := time.Now()

	for i := 0; i < config.Workers; i++ {
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < config.Increments; j++ {

				t0 := time.Now()
				_, err := c.Increment(ctx, config.Name)
				dt := time.Since(t0).Seconds()

				mu.Lock()
				latency.Add(dt)
				if err == nil {
					ok++
				} else {
					failed++
				}
				mu.Unlock()

				if err != nil {
					log.WithFields(log.Fields{"worker": worker, "error": err.Error()}).Debug("increment failed")
					if ctx.Err() != nil {
						return
					}
				}
			}
		}(i)
	}

	wg.Wait()

	report.Elapsed = time.Since(start)

	report.Got, err = c.Read(context.WithoutCancel(ctx), config.Name)
	if err != nil {
		return report, err
	}

	report.Expected = report.Initial + ok
	report.Errors = failed
	report.Latency = Stats{
		Count:  latency.Count(),
		Min:    latency.Min(),
		Max:    latency.Max(),
		Mean:   latency.Mean(),
		Stddev: latency.Stddev(),
	}

	return report, nil
}
