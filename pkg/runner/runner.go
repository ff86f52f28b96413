// Package runner owns process lifecycle: banner, start, and drain.
package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"sync/atomic"

	"github.com/dimiro1/banner"
)

type State int32

const (
	StateNew State = iota
	StateStarting
	StateRunning
	StateDraining
	StateStopped
)

// Service is a long-running component that returns when ctx is
// cancelled.
type Service interface {
	Run(ctx context.Context) error
}

type Hooks struct {
	OnStart func()
	OnStop  func()
}

const Version = "dev"

func PrintBanner() {
	tpl := "{{ .Title \"VOXA\" \"\" 0 }}\nVersion: " + Version + "\n"
	banner.Init(os.Stdout, true, true, bytes.NewBufferString(tpl))
}

// Lifecycle runs one service through its states exactly once.
type Lifecycle struct {
	service Service
	hooks   Hooks
	state   int32
	cancel  context.CancelFunc
}

func New(service Service, hooks Hooks) *Lifecycle {
	return &Lifecycle{service: service, hooks: hooks}
}

func (l *Lifecycle) Run(ctx context.Context) error {
	if !l.casState(StateNew, StateStarting) {
		return errors.New("invalid state transition")
	}
	PrintBanner()
	ctx, l.cancel = context.WithCancel(ctx)
	defer l.cancel()
	if l.hooks.OnStart != nil {
		l.hooks.OnStart()
	}
	l.setState(StateRunning)

	err := l.service.Run(ctx)

	l.setState(StateDraining)
	if l.hooks.OnStop != nil {
		l.hooks.OnStop()
	}
	l.setState(StateStopped)
	return err
}

// Stop cancels the running service; Run returns once it drained.
func (l *Lifecycle) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
}

func (l *Lifecycle) State() State {
	return State(atomic.LoadInt32(&l.state))
}

func (l *Lifecycle) casState(from, to State) bool {
	return atomic.CompareAndSwapInt32(&l.state, int32(from), int32(to))
}

func (l *Lifecycle) setState(s State) {
	atomic.StoreInt32(&l.state, int32(s))
}
