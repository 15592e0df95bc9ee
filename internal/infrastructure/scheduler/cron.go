package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"NewsCast/internal/ports"
)

// CronScheduler runs named jobs on fixed intervals. A job never overlaps
// with itself and a panicking job is recovered.
type CronScheduler struct {
	cron   *cron.Cron
	mu     sync.Mutex
	names  map[string]cron.EntryID
	first  sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler logging through log.
func NewCronScheduler(log cron.Logger) *CronScheduler {
	if log == nil {
		log = cron.DiscardLogger
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &CronScheduler{
		cron: cron.New(
			cron.WithLogger(log),
			cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log)),
		),
		names:  make(map[string]cron.EntryID),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Schedule registers job under name. A non-positive interval leaves the job disabled.
func (c *CronScheduler) Schedule(name string, every time.Duration, job func(ctx context.Context)) error {
	if job == nil || every <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.names[name]; ok {
		return fmt.Errorf("job %q already scheduled", name)
	}

	id, err := c.cron.AddFunc("@every "+every.String(), func() { job(c.ctx) })
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	c.names[name] = id
	return nil
}

// Start runs every job once and then keeps them on their intervals until ctx ends.
func (c *CronScheduler) Start(ctx context.Context) error {
	c.cron.Start()
	for _, entry := range c.cron.Entries() {
		job := entry.WrappedJob
		c.first.Add(1)
		go func() {
			defer c.first.Done()
			job.Run()
		}()
	}

	go func() {
		select {
		case <-ctx.Done():
			c.cancel()
		case <-c.ctx.Done():
		}
	}()
	return nil
}

// Stop prevents new runs and waits for running jobs until ctx expires.
func (c *CronScheduler) Stop(ctx context.Context) error {
	done := c.cron.Stop()
	defer c.cancel()

	// Start-up runs happen outside cron's own job tracking.
	first := make(chan struct{})
	go func() {
		c.first.Wait()
		close(first)
	}()

	for _, wait := range []<-chan struct{}{done.Done(), first} {
		select {
		case <-wait:
		case <-ctx.Done():
			return fmt.Errorf("wait for running jobs: %w", ctx.Err())
		}
	}
	return nil
}

// Jobs lists registered job names.
func (c *CronScheduler) Jobs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.names))
	for name := range c.names {
		names = append(names, name)
	}
	return names
}
