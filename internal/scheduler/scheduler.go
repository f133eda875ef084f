// Package scheduler wraps go-co-op/gocron/v2 with a named
// disable/remove/run-now task surface for spec.md's "every(N,unit)" API.
// There is no Enable: Disable removes the job from gocron, and a disabled
// job runs again only if registered anew with Every or EveryAt.
// Grounded on ClusterCockpit-cc-backend's
// internal/taskManager package, which registers gocron jobs behind
// similarly named Register* functions guarded by config flags.
package scheduler

import (
	"strconv"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
)

// Scheduler owns a gocron.Scheduler and tracks jobs by name so callers
// can disable/remove/run-now by the name they registered with, instead
// of juggling gocron.Job handles themselves.
type Scheduler struct {
	gs   gocron.Scheduler
	log  zerolog.Logger
	jobs map[string]gocron.Job
}

func New(log zerolog.Logger) (*Scheduler, error) {
	gs, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &Scheduler{gs: gs, log: log.With().Str("component", "scheduler").Logger(), jobs: make(map[string]gocron.Job)}, nil
}

// Every registers fn to run every n units (e.g. Every(30, time.Second,
// "checkpoint", fn)). A panic or error inside fn is caught and logged;
// it never stops the scheduler from running other jobs.
func (s *Scheduler) Every(n int, unit time.Duration, name string, fn func() error) error {
	job, err := s.gs.NewJob(
		gocron.DurationJob(time.Duration(n)*unit),
		gocron.NewTask(s.wrap(name, fn)),
		gocron.WithName(name),
	)
	if err != nil {
		return err
	}
	s.jobs[name] = job
	return nil
}

// EveryAt registers fn to run daily at the given "HH:MM:SS" time.
func (s *Scheduler) EveryAt(name, at string, fn func() error) error {
	atTime, err := gocron.NewAtTime(parseHMS(at))
	if err != nil {
		return err
	}
	job, err := s.gs.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(atTime)),
		gocron.NewTask(s.wrap(name, fn)),
		gocron.WithName(name),
	)
	if err != nil {
		return err
	}
	s.jobs[name] = job
	return nil
}

func (s *Scheduler) wrap(name string, fn func() error) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error().Str("job", name).Interface("panic", r).Msg("scheduled task panicked")
			}
		}()
		if err := fn(); err != nil {
			s.log.Error().Err(err).Str("job", name).Msg("scheduled task failed")
		}
	}
}

func (s *Scheduler) Disable(name string) error {
	job, ok := s.jobs[name]
	if !ok {
		return nil
	}
	return s.gs.RemoveJob(job.ID())
}

func (s *Scheduler) Remove(name string) {
	if job, ok := s.jobs[name]; ok {
		s.gs.RemoveJob(job.ID())
		delete(s.jobs, name)
	}
}

func (s *Scheduler) RunNow(name string) error {
	job, ok := s.jobs[name]
	if !ok {
		return nil
	}
	return job.RunNow()
}

func (s *Scheduler) Start() {
	s.gs.Start()
}

func (s *Scheduler) Shutdown() error {
	return s.gs.Shutdown()
}

// parseHMS accepts both ":SS" (hour/minute default to 0) and full
// "HH:MM:SS" forms for EveryAt's at parameter.
func parseHMS(hms string) (uint, uint, uint) {
	parts := strings.Split(strings.TrimPrefix(hms, ":"), ":")
	var vals [3]uint
	offset := 3 - len(parts)
	for i, p := range parts {
		n, _ := strconv.Atoi(p)
		vals[offset+i] = uint(n)
	}
	return vals[0], vals[1], vals[2]
}
