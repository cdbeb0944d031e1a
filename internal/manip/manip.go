// Package manip holds the per-frame image manipulations an overlay is
// built from: geometric scaling, axis flips and pupil-detection rendering.
// Each manipulator is stateless with respect to frames; everything it
// needs arrives with the call.
package manip

import (
	"errors"
	"image"
)

// ErrInvalidParameter reports a manipulation parameter outside its valid
// domain, such as a non-positive or non-finite scale factor.
var ErrInvalidParameter = errors.New("invalid manipulation parameter")

// Context carries per-frame metadata into a manipulation. IsFakeFrame is
// true for synthesized placeholder frames emitted during signal loss;
// guarded manipulators pass those through untouched.
type Context struct {
	IsFakeFrame bool
}

// Manipulator transforms one frame buffer. The parameter is the per-call
// configuration value; its type is fixed per implementation. ApplyTo
// returns the manipulated buffer, which is the input buffer itself for
// identity passes and in-place annotation, or a fresh buffer when the
// geometry changes.
type Manipulator[P any] interface {
	ApplyTo(img *image.RGBA, parameter P, ctx Context) (*image.RGBA, error)
}

// Step is a manipulator bound to its parameter source, ready for chaining.
type Step func(img *image.RGBA, ctx Context) (*image.RGBA, error)

// Bind fixes a manipulator's parameter source. The source is consulted on
// every call, so settings changed between frames take effect on the next
// frame without rebuilding the chain.
func Bind[P any](m Manipulator[P], parameter func() P) Step {
	return func(img *image.RGBA, ctx Context) (*image.RGBA, error) {
		return m.ApplyTo(img, parameter(), ctx)
	}
}

// Pipeline runs steps in order, feeding each result to the next. The first
// error aborts the frame.
type Pipeline []Step

func (p Pipeline) Run(img *image.RGBA, ctx Context) (*image.RGBA, error) {
	var err error
	for _, step := range p {
		img, err = step(img, ctx)
		if err != nil {
			return nil, err
		}
	}
	return img, nil
}
