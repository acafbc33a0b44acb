package feeder

import (
	"context"
	"time"

	"feedfloat/internal/core/model"
)

// State represents the controller lifecycle.
type State string

const (
	StateIdle    State = "idle"
	StateOpening State = "opening"
	StateActive  State = "active"
	StateClosing State = "closing"
)

// Callbacks receives session notifications. Nil fields are skipped.
type Callbacks struct {
	OnStarted   func(mode model.Mode)
	OnCompleted func(draft model.SessionDraft)
	OnEnded     func(mode model.Mode)
}

// Surface is a floating presentation context owned by the controller while a
// session is open.
type Surface interface {
	Kind() string
	Fallback() bool
	// Focus brings the surface to the front. Overlays pulse instead.
	Focus()
	// Close releases the surface. Calling it twice is harmless.
	Close()
	// SetOnDismiss registers the handler for the user closing the surface
	// through its own controls. Passing nil detaches it.
	SetOnDismiss(handler func())
}

// Provisioner produces a surface for a new session.
type Provisioner interface {
	Request(ctx context.Context) (Surface, error)
}

// ProvisionerFunc adapts a function to Provisioner.
type ProvisionerFunc func(ctx context.Context) (Surface, error)

func (fn ProvisionerFunc) Request(ctx context.Context) (Surface, error) {
	return fn(ctx)
}

// Handlers are the user actions a View forwards to the controller.
type Handlers struct {
	OnToggle        func()
	OnStop          func()
	OnSelectSide    func(side model.Side)
	OnAlternateSide func()
	OnStepVolume    func(delta float64)
	OnVolumeEntered func(volume float64)
	OnMilkType      func(milk model.MilkType)
}

// View is the interactive document rendered into a surface.
type View interface {
	SetElapsed(text string)
	SetStatus(text string)
	SetRunning(running bool)
	SetSide(side model.Side)
	SetVolume(volume float64)
	SetMilkType(milk model.MilkType)
	Bind(handlers Handlers)
}

// Renderer builds the view for mode and mounts it into surface.
type Renderer interface {
	Render(surface Surface, mode model.Mode) (View, error)
}

// Alerter shows a user-facing message when a session cannot be opened.
type Alerter interface {
	Alert(err error)
}

// Ticker delivers redisplay ticks.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Snapshot is a read-only view of the active session.
type Snapshot struct {
	State       State
	Mode        model.Mode
	Side        model.Side
	VolumeMl    float64
	MilkType    model.MilkType
	Running     bool
	Elapsed     time.Duration
	Start       time.Time
	SurfaceKind string
}

type systemTicker struct {
	ticker *time.Ticker
}

func newSystemTicker(interval time.Duration) Ticker {
	return &systemTicker{ticker: time.NewTicker(interval)}
}

func (ticker *systemTicker) C() <-chan time.Time {
	return ticker.ticker.C
}

func (ticker *systemTicker) Stop() {
	ticker.ticker.Stop()
}
