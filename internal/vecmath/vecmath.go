// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package vecmath holds the small vector helpers shared by the step detectors.
package vecmath

import (
	"gonum.org/v1/gonum/floats"
)

// Vec3 is a 3-axis vector (x, y, z).
type Vec3 [3]float64

// Sum returns the sum of all values in s.
func Sum(s []float64) float64 {
	return floats.Sum(s)
}

// Dot returns the dot product a·b.
func Dot(a, b Vec3) float64 {
	return floats.Dot(a[:], b[:])
}

// Norm returns the Euclidean length of v.
func Norm(v Vec3) float64 {
	return floats.Norm(v[:], 2)
}

// Normalize scales v to unit length.
// A zero vector has no direction; the result is NaN in every component.
func Normalize(v Vec3) Vec3 {
	n := Norm(v)
	return Vec3{v[0] / n, v[1] / n, v[2] / n}
}

// Cross returns the cross product a×b.
func Cross(a, b Vec3) Vec3 {
	return Vec3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}
