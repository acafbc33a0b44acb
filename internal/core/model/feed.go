package model

import (
	"math"
	"time"
)

// Mode is the kind of feeding tracked by a session.
type Mode string

const (
	ModeBreast Mode = "breast"
	ModeBottle Mode = "bottle"
)

// Valid reports whether the mode is supported.
func (mode Mode) Valid() bool {
	return mode == ModeBreast || mode == ModeBottle
}

// Side is the breast side used during a breastfeeding session.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
	SideBoth  Side = "both"
)

var sideCycle = []Side{SideLeft, SideRight, SideBoth}

// Valid reports whether the side is one of left, right or both.
func (side Side) Valid() bool {
	for _, candidate := range sideCycle {
		if side == candidate {
			return true
		}
	}
	return false
}

// Next returns the side that follows in the left, right, both order.
func (side Side) Next() Side {
	for index, candidate := range sideCycle {
		if side == candidate {
			return sideCycle[(index+1)%len(sideCycle)]
		}
	}
	return SideLeft
}

// MilkType describes the bottle contents.
type MilkType string

const (
	MilkMaternal MilkType = "maternal"
	MilkFormula  MilkType = "formula"
	MilkMixed    MilkType = "mixed"
)

// MilkTypes lists the supported milk types in display order.
func MilkTypes() []MilkType {
	return []MilkType{MilkMaternal, MilkFormula, MilkMixed}
}

// Valid reports whether the milk type is supported.
func (milk MilkType) Valid() bool {
	return milk == MilkMaternal || milk == MilkFormula || milk == MilkMixed
}

// OpenContext carries the optional hints passed when a session is opened.
type OpenContext struct {
	Side      *Side
	Amount    *float64
	MilkType  *MilkType
	AutoStart *bool
}

// ResolvedSide returns the requested side or left when it is missing or unknown.
func (ctx OpenContext) ResolvedSide() Side {
	if ctx.Side != nil && ctx.Side.Valid() {
		return *ctx.Side
	}
	return SideLeft
}

// ResolvedMilkType returns the requested milk type or maternal.
func (ctx OpenContext) ResolvedMilkType() MilkType {
	if ctx.MilkType != nil && ctx.MilkType.Valid() {
		return *ctx.MilkType
	}
	return MilkMaternal
}

// ResolvedAmount returns the requested amount when it is a finite non-negative
// number, otherwise fallback.
func (ctx OpenContext) ResolvedAmount(fallback float64) float64 {
	if ctx.Amount == nil {
		return fallback
	}
	amount := *ctx.Amount
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return fallback
	}
	return amount
}

// ResolvedAutoStart defaults to true.
func (ctx OpenContext) ResolvedAutoStart() bool {
	if ctx.AutoStart == nil {
		return true
	}
	return *ctx.AutoStart
}

// SessionDraft is the finalized record of a completed feeding session.
type SessionDraft struct {
	ID        string
	Mode      Mode
	Label     string
	Start     time.Time
	End       time.Time
	Duration  time.Duration
	Side      *Side
	VolumeMl  *float64
	MilkType  *MilkType
	CreatedAt time.Time
}
