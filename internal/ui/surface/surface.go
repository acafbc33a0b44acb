package surface

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"fyne.io/fyne/v2"
)

// Kind names a floating-surface backend.
type Kind string

const (
	KindFloating Kind = "floating"
	KindPopup    Kind = "popup"
	KindOverlay  Kind = "overlay"
)

var (
	// ErrNoSurface is returned when every backend failed.
	ErrNoSurface = errors.New("no floating surface available")
	// ErrUnavailable means the backend does not exist on this platform or is disabled.
	ErrUnavailable = errors.New("surface backend unavailable")
	// ErrBlocked means the platform refused to open a window.
	ErrBlocked = errors.New("surface window blocked")
)

// Spec describes the preferred floating surface.
type Spec struct {
	Title   string
	Size    fyne.Size
	Opacity uint8
}

// Surface is a live floating document context.
type Surface interface {
	Kind() string
	Fallback() bool
	Mount(content fyne.CanvasObject)
	Focus()
	Close()
	SetOnDismiss(handler func())
}

// Strategy tries to produce one kind of surface.
type Strategy interface {
	Kind() Kind
	Open(ctx context.Context, spec Spec) (Surface, error)
}

// Attempt records the outcome of one strategy during provisioning.
type Attempt struct {
	Kind Kind
	Err  error
}

// ProvisionError lists every failed attempt.
type ProvisionError struct {
	Attempts []Attempt
}

func (provisionErr *ProvisionError) Error() string {
	parts := make([]string, 0, len(provisionErr.Attempts))
	for _, attempt := range provisionErr.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", attempt.Kind, attempt.Err))
	}
	return fmt.Sprintf("%v (%s)", ErrNoSurface, strings.Join(parts, "; "))
}

func (provisionErr *ProvisionError) Unwrap() error {
	return ErrNoSurface
}

// Provisioner walks its strategies in order until one yields a surface.
type Provisioner struct {
	spec       Spec
	strategies []Strategy
}

// NewProvisioner creates a Provisioner trying strategies in the given order.
func NewProvisioner(spec Spec, strategies ...Strategy) *Provisioner {
	return &Provisioner{spec: spec, strategies: strategies}
}

// SetSpec replaces the preferred surface description.
func (provisioner *Provisioner) SetSpec(spec Spec) {
	provisioner.spec = spec
}

// Request returns the first surface any strategy can open.
func (provisioner *Provisioner) Request(ctx context.Context) (Surface, error) {
	attempts := make([]Attempt, 0, len(provisioner.strategies))
	for _, strategy := range provisioner.strategies {
		if err := ctx.Err(); err != nil {
			attempts = append(attempts, Attempt{Kind: strategy.Kind(), Err: err})
			break
		}
		opened, err := strategy.Open(ctx, provisioner.spec)
		if err == nil && opened != nil {
			slog.Debug("floating surface provisioned", "kind", strategy.Kind(), "skipped", len(attempts))
			return opened, nil
		}
		if err == nil {
			err = ErrBlocked
		}
		slog.Info("floating surface backend failed, trying next", "kind", strategy.Kind(), "error", err)
		attempts = append(attempts, Attempt{Kind: strategy.Kind(), Err: err})
	}
	return nil, &ProvisionError{Attempts: attempts}
}
