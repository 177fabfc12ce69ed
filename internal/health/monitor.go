// Package health probes database connectivity on a schedule.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Pinger checks that the database can be reached.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Status is the outcome of the most recent probe.
type Status struct {
	Checked   bool
	Healthy   bool
	CheckedAt time.Time
	Duration  time.Duration
	Error     string
	NextCheck *time.Time
}

// Monitor runs Ping on a cron schedule and remembers the last result.
type Monitor struct {
	pinger  Pinger
	timeout time.Duration
	cron    *cron.Cron
	entryID cron.EntryID
	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	last    Status
}

// NewMonitor creates a monitor. timeout bounds a single probe; zero means
// the pinger's own timeout applies.
func NewMonitor(pinger Pinger, timeout time.Duration) *Monitor {
	return &Monitor{
		pinger:  pinger,
		timeout: timeout,
		cron:    cron.New(),
	}
}

// Start starts the scheduler with the given cron spec.
func (m *Monitor) Start(schedule string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	if err := m.updateSchedule(schedule); err != nil {
		return err
	}

	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.running = true
	m.cron.Start()

	log.Info().Str("schedule", schedule).Msg("Health monitor started")
	return nil
}

// Stop stops the scheduler and waits for a running probe to finish.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.cancel()
	m.running = false
	m.mu.Unlock()

	ctx := m.cron.Stop()
	<-ctx.Done()
	log.Info().Msg("Health monitor stopped")
}

// SetSchedule replaces the probe schedule.
func (m *Monitor) SetSchedule(schedule string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateSchedule(schedule)
}

// updateSchedule must be called with mu held.
func (m *Monitor) updateSchedule(schedule string) error {
	id, err := m.cron.AddFunc(schedule, m.scheduledCheck)
	if err != nil {
		return err
	}
	if m.entryID != 0 {
		m.cron.Remove(m.entryID)
	}
	m.entryID = id
	log.Debug().Str("schedule", schedule).Msg("Health check schedule updated")
	return nil
}

// Status returns the last probe result and the next scheduled probe.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := m.last
	if m.entryID != 0 && m.running {
		entry := m.cron.Entry(m.entryID)
		if !entry.Next.IsZero() {
			next := entry.Next
			status.NextCheck = &next
		}
	}
	return status
}

func (m *Monitor) scheduledCheck() {
	m.mu.RLock()
	ctx := m.ctx
	m.mu.RUnlock()
	if ctx == nil {
		ctx = context.Background()
	}
	m.Check(ctx)
}

// Check runs one probe now, records it and logs a change of state.
func (m *Monitor) Check(ctx context.Context) Status {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	start := time.Now()
	err := m.pinger.Ping(ctx)

	current := Status{
		Checked:   true,
		Healthy:   err == nil,
		CheckedAt: start,
		Duration:  time.Since(start),
	}
	if err != nil {
		current.Error = err.Error()
	}

	m.mu.Lock()
	previous := m.last
	m.last = current
	m.mu.Unlock()

	switch {
	case !previous.Checked && current.Healthy:
		log.Info().Dur("duration", current.Duration).Msg("Database reachable")
	case !current.Healthy && (previous.Healthy || !previous.Checked):
		log.Error().Err(err).Msg("Database unreachable")
	case current.Healthy && !previous.Healthy:
		log.Info().Str("previous_error", previous.Error).Msg("Database reachable again")
	default:
		log.Debug().Bool("healthy", current.Healthy).Dur("duration", current.Duration).Msg("Health check finished")
	}

	return current
}
