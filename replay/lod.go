/*
Copyright (C) 2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package replay

import (
	"math"

	"github.com/launix-de/vicad/kernel"
)

// LodProfile selects the tolerance a script's auto-segmented circular
// geometry is held to.
type LodProfile uint8

const (
	LodDraft LodProfile = iota
	LodModel
	LodExport3MF
)

const (
	lodToleranceDraft     = 0.1
	lodToleranceModel     = 0.01
	lodToleranceExport3MF = 0.0001

	minCircularSegments = 4
	maxCircularSegments = 8192
)

// LodToleranceForProfile returns the scene-unit tolerance a profile
// holds auto-segmented circles to.
func LodToleranceForProfile(profile LodProfile) float64 {
	switch profile {
	case LodDraft:
		return lodToleranceDraft
	case LodExport3MF:
		return lodToleranceExport3MF
	default:
		return lodToleranceModel
	}
}

func roundUpToMultipleOfFour(n int) int {
	if n <= 0 {
		return 0
	}
	return ((n + 3) / 4) * 4
}

func circularSegmentsForRadiusAndTolerance(radius, tolerance float64) int {
	radius = math.Abs(radius)
	if math.IsInf(radius, 0) || math.IsNaN(radius) || radius <= 1e-12 {
		return minCircularSegments
	}
	if math.IsInf(tolerance, 0) || math.IsNaN(tolerance) || tolerance <= 0 {
		tolerance = lodToleranceModel
	}
	tolerance = math.Max(tolerance, 1e-9)
	if tolerance >= radius {
		return minCircularSegments
	}

	cosArg := clamp(1-tolerance/radius, -1, 1)
	theta := math.Acos(cosArg)
	if math.IsNaN(theta) || theta <= 1e-9 {
		return maxCircularSegments
	}
	n := int(math.Ceil(math.Pi / theta))
	if n < minCircularSegments {
		n = minCircularSegments
	}
	if n > maxCircularSegments {
		n = maxCircularSegments
	}
	return roundUpToMultipleOfFour(n)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// AutoCircularSegments derives the segment count a circle of the given
// radius should be tessellated with under profile, from the sagitta
// error bound r*(1-cos(pi/n)) <= tolerance.
func AutoCircularSegments(radius float64, profile LodProfile) int {
	return circularSegmentsForRadiusAndTolerance(radius, LodToleranceForProfile(profile))
}

// AutoCircularSegmentsForRevolve scales AutoCircularSegments down for a
// partial revolve, proportional to the swept angle, with a floor of 3.
func AutoCircularSegmentsForRevolve(radius, revolveDegrees float64, profile LodProfile) int {
	full := AutoCircularSegments(radius, profile)
	if math.IsNaN(revolveDegrees) || revolveDegrees <= 0 {
		return 3
	}
	clamped := math.Min(revolveDegrees, 360)
	scaled := int(math.Ceil(float64(full) * clamped / 360))
	if scaled < 3 {
		return 3
	}
	return scaled
}

// maxPolygonRadius returns the farthest distance from the origin among
// all contour points across polys, the "radius" a revolve op auto-
// segments against (the reference kernel revolves around Z using each
// point's X as its sweep radius).
func maxPolygonRadius(polys []kernel.Polygon) float64 {
	best := 0.0
	for _, poly := range polys {
		for _, p := range poly {
			if r := math.Hypot(p.X, p.Y); r > best {
				best = r
			}
		}
	}
	return best
}

// PostprocessPolicy is the future-facing refine-to-tolerance hook: when
// Enabled, ApplyReplayPostprocess re-tessellates the replayed manifold
// so no triangle deviates from the true surface by more than Tolerance.
type PostprocessPolicy struct {
	Enabled   bool
	Tolerance float64
}

// ApplyReplayPostprocess runs k.RefineToTolerance over m when policy
// enables it with a usable tolerance, else returns m unchanged.
func ApplyReplayPostprocess(k kernel.Kernel, m kernel.Manifold, policy PostprocessPolicy) kernel.Manifold {
	if !policy.Enabled {
		return m
	}
	if math.IsNaN(policy.Tolerance) || policy.Tolerance <= 0 {
		return m
	}
	return k.RefineToTolerance(m, policy.Tolerance)
}
