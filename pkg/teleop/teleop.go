// Package teleop drives the ego and opponent vehicles from keyboard input.
//
// Each tick reads one key, updates vehicle commands and publishes them. The loop only stops
// on quit key, on the first error or when its context is canceled.
package teleop

import (
	"context"
	"fmt"
	"time"

	"github.com/cyrilix/robocar-teleop/pkg/drive"
	"github.com/cyrilix/robocar-teleop/pkg/keyboard"
	"go.uber.org/zap"
)

const DefaultPeriod = 100 * time.Millisecond

// Publisher emits the drive commands of one tick
type Publisher interface {
	Publish(now time.Time, v drive.Vehicles) error
}

// Console displays status lines
type Console interface {
	Banner() error
	Print(line string) error
	Append(line string) error
}

type Option func(l *Loop)

func WithPeriod(period time.Duration) Option {
	return func(l *Loop) {
		l.period = period
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Loop) {
		l.now = now
	}
}

func New(reader keyboard.Reader, console Console, publishers []Publisher, opts ...Option) *Loop {
	l := Loop{
		reader:     reader,
		console:    console,
		publishers: publishers,
		period:     DefaultPeriod,
		now:        time.Now,
		log:        zap.S().With("part", "teleop"),
	}
	for _, o := range opts {
		o(&l)
	}
	return &l
}

type Loop struct {
	reader     keyboard.Reader
	console    Console
	publishers []Publisher
	period     time.Duration
	now        func() time.Time

	vehicles drive.Vehicles

	log *zap.SugaredLogger
}

// Vehicles returns current commands
func (l *Loop) Vehicles() drive.Vehicles {
	return l.vehicles
}

// Run ticks until quit key is pressed or ctx is done. Quitting returns a nil error, a
// canceled context returns ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	if err := l.console.Banner(); err != nil {
		return err
	}

	ticker := time.NewTicker(l.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			terminate, err := l.Tick(ctx)
			if err != nil {
				return err
			}
			if terminate {
				l.log.Info("quit requested")
				return nil
			}
		}
	}
}

// Tick reads one key and emits resulting commands. It returns true when teleoperation must stop.
func (l *Loop) Tick(ctx context.Context) (bool, error) {
	now := l.now()

	key, err := l.reader.ReadKey(ctx)
	if err != nil {
		return false, fmt.Errorf("unable to read key: %w", err)
	}
	l.log.Debugf("key pressed: %q", key)

	quit := l.vehicles.Apply(key)
	if err := l.publish(now); err != nil {
		return false, err
	}

	status := l.vehicles.Ego.String()
	if quit {
		return true, l.console.Print(status)
	}
	return false, l.console.Append(status)
}

func (l *Loop) publish(now time.Time) error {
	for _, p := range l.publishers {
		if err := p.Publish(now, l.vehicles); err != nil {
			return fmt.Errorf("unable to publish drive commands: %w", err)
		}
	}
	return nil
}
