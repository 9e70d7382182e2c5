package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler runs named periodic tasks. A run that is still going when its
// next tick fires is skipped, and a panic is logged instead of killing the
// process.
type Scheduler struct {
	c      *cron.Cron
	log    logrus.FieldLogger
	ctx    context.Context
	cancel context.CancelFunc
}

func New(log logrus.FieldLogger) *Scheduler {
	l := cronLogger{log: log.WithField("component", "cron")}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		c: cron.New(
			cron.WithLogger(l),
			cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
		),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers fn under a standard cron spec or a descriptor like "@every 5m".
func (s *Scheduler) Add(spec, name string, fn func(ctx context.Context) error) error {
	_, err := s.c.AddFunc(spec, func() {
		start := time.Now()
		entry := s.log.WithField("task", name)
		if err := fn(s.ctx); err != nil {
			entry.WithError(err).Error("scheduled task failed")
			return
		}
		entry.WithField("duration_ms", time.Since(start).Milliseconds()).Debug("scheduled task done")
	})
	return err
}

func (s *Scheduler) Start() { s.c.Start() }

// Stop cancels running tasks and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.c.Stop().Done()
}

type cronLogger struct{ log logrus.FieldLogger }

func (l cronLogger) Info(msg string, kv ...any) {
	l.log.WithFields(fields(kv)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.log.WithFields(fields(kv)).WithError(err).Error(msg)
}

func fields(kv []any) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			f[k] = kv[i+1]
		}
	}
	return f
}
