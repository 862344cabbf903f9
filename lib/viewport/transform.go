//
// Copyright (C) 2023 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package viewport

import (
	"fmt"

	"github.com/pkg/errors"
)

var ErrEmptyRegion = errors.New("zoom region has no area")

// Rect is an axis-aligned rectangle in pixel space.
type Rect struct {
	X0, Y0, X1, Y1 float64
}

// Norm returns r with X0 <= X1 and Y0 <= Y1.
func (r Rect) Norm() Rect {
	if r.X0 > r.X1 {
		r.X0, r.X1 = r.X1, r.X0
	}
	if r.Y0 > r.Y1 {
		r.Y0, r.Y1 = r.Y1, r.Y0
	}
	return r
}

func (r Rect) String() string {
	return fmt.Sprintf("[%g,%g]x[%g,%g]", r.X0, r.X1, r.Y0, r.Y1)
}

// Linear is v -> K*v + B.
type Linear struct {
	K, B float64
}

var identity = Linear{K: 1}

func (l Linear) Apply(v float64) float64 { return l.K*v + l.B }

func (l Linear) Invert(v float64) float64 { return (v - l.B) / l.K }

// fit returns the map sending [a0, a1] onto [b0, b1].
func fit(a0, a1, b0, b1 float64) Linear {
	k := (b1 - b0) / (a1 - a0)
	return Linear{K: k, B: b0 - k*a0}
}

// Transform is the zoom applied on top of the scales' pixel space.
// Each zoom is computed from the home rectangle, never from the previous zoom.
type Transform struct {
	home Rect
	x, y Linear
}

// NewTransform returns an identity transform over home.
func NewTransform(home Rect) *Transform {
	return &Transform{home: home.Norm(), x: identity, y: identity}
}

// Home returns the full-extent rectangle.
func (t *Transform) Home() Rect { return t.home }

// X returns the x-axis map.
func (t *Transform) X() Linear { return t.x }

// Y returns the y-axis map.
func (t *Transform) Y() Linear { return t.y }

// Reset restores the identity transform.
func (t *Transform) Reset() {
	t.x, t.y = identity, identity
}

// SetZoomRegion zooms so that r, in untransformed pixel space, fills the
// home rectangle.
func (t *Transform) SetZoomRegion(r Rect) error {
	r = r.Norm()
	if r.X1 == r.X0 || r.Y1 == r.Y0 {
		return errors.Wrap(ErrEmptyRegion, r.String())
	}
	t.x = fit(r.X0, r.X1, t.home.X0, t.home.X1)
	t.y = fit(r.Y0, r.Y1, t.home.Y0, t.home.Y1)
	return nil
}

// Apply transforms a point.
func (t *Transform) Apply(x, y float64) (float64, float64) {
	return t.x.Apply(x), t.y.Apply(y)
}

// Region returns the untransformed rectangle currently shown in home.
func (t *Transform) Region() Rect {
	return Rect{
		X0: t.x.Invert(t.home.X0), X1: t.x.Invert(t.home.X1),
		Y0: t.y.Invert(t.home.Y0), Y1: t.y.Invert(t.home.Y1),
	}.Norm()
}

// IsIdentity reports whether no zoom is applied.
func (t *Transform) IsIdentity() bool {
	return t.x == identity && t.y == identity
}
