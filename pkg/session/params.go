package session

import (
	"fmt"
	"math"
	"strings"
)

// Kind is the primitive type of an object. It is fixed at creation.
type Kind int

const (
	KindBox Kind = iota + 1
	KindCylinder
	KindSphere
)

func (k Kind) String() string {
	switch k {
	case KindBox:
		return "box"
	case KindCylinder:
		return "cylinder"
	case KindSphere:
		return "sphere"
	default:
		return "unknown"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "box":
		return KindBox, nil
	case "cylinder":
		return KindCylinder, nil
	case "sphere":
		return KindSphere, nil
	default:
		return 0, fmt.Errorf("unknown kind %q", s)
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	if k.String() == "unknown" {
		return nil, fmt.Errorf("cannot marshal kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Parameter names accepted by SetParam.
const (
	ParamLength = "length"
	ParamWidth  = "width"
	ParamHeight = "height"
	ParamRadius = "radius"
)

// Params holds the shape dimensions of one object. Which fields are used
// depends on Kind: box uses Length, Width and Height; cylinder uses Radius
// and Height; sphere uses Radius.
type Params struct {
	Kind   Kind    `json:"kind"`
	Length float64 `json:"length,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
	Radius float64 `json:"radius,omitempty"`
}

// Box returns box parameters.
func Box(length, width, height float64) Params {
	return Params{Kind: KindBox, Length: length, Width: width, Height: height}
}

// Cylinder returns cylinder parameters.
func Cylinder(radius, height float64) Params {
	return Params{Kind: KindCylinder, Radius: radius, Height: height}
}

// Sphere returns sphere parameters.
func Sphere(radius float64) Params {
	return Params{Kind: KindSphere, Radius: radius}
}

// ParamNames lists the dimensions used by k, in kernel slot order.
func ParamNames(k Kind) []string {
	switch k {
	case KindBox:
		return []string{ParamLength, ParamWidth, ParamHeight}
	case KindCylinder:
		return []string{ParamRadius, ParamHeight}
	case KindSphere:
		return []string{ParamRadius}
	default:
		return nil
	}
}

// Get returns the named dimension.
func (p Params) Get(name string) (float64, error) {
	if !p.uses(name) {
		return 0, fmt.Errorf("%s has no %q: %w", p.Kind, name, ErrUnknownParam)
	}
	switch name {
	case ParamLength:
		return p.Length, nil
	case ParamWidth:
		return p.Width, nil
	case ParamHeight:
		return p.Height, nil
	default:
		return p.Radius, nil
	}
}

// With returns a copy of p with the named dimension replaced.
func (p Params) With(name string, v float64) (Params, error) {
	if !p.uses(name) {
		return p, fmt.Errorf("%s has no %q: %w", p.Kind, name, ErrUnknownParam)
	}
	switch name {
	case ParamLength:
		p.Length = v
	case ParamWidth:
		p.Width = v
	case ParamHeight:
		p.Height = v
	case ParamRadius:
		p.Radius = v
	}
	return p, nil
}

func (p Params) uses(name string) bool {
	for _, n := range ParamNames(p.Kind) {
		if n == name {
			return true
		}
	}
	return false
}

// Validate checks the kind and that every used dimension is finite and
// strictly positive.
func (p Params) Validate() error {
	names := ParamNames(p.Kind)
	if names == nil {
		return fmt.Errorf("kind %d: %w", int(p.Kind), ErrInvalidParams)
	}
	for _, n := range names {
		v, _ := p.Get(n)
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return fmt.Errorf("%s %s = %v: %w", p.Kind, n, v, ErrInvalidParams)
		}
	}
	return nil
}

// Slots packs p into the kernel's three positional parameter slots:
// box (length, width, height), cylinder (radius, height, 0),
// sphere (radius, 0, 0).
func (p Params) Slots() [3]float64 {
	switch p.Kind {
	case KindBox:
		return [3]float64{p.Length, p.Width, p.Height}
	case KindCylinder:
		return [3]float64{p.Radius, p.Height, 0}
	case KindSphere:
		return [3]float64{p.Radius, 0, 0}
	default:
		return [3]float64{}
	}
}

// Range accepted by the editing surface.
const (
	UIMin = 0.1
	UIMax = 10.0
)

// ClampUI limits an edited dimension to [UIMin, UIMax]. NaN maps to UIMin.
func ClampUI(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < UIMin:
		return UIMin
	case v > UIMax:
		return UIMax
	default:
		return v
	}
}
