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
	"testing"

	"github.com/launix-de/vicad/kernel"
)

func TestLodToleranceForProfile(t *testing.T) {
	cases := map[LodProfile]float64{
		LodDraft:     0.1,
		LodModel:     0.01,
		LodExport3MF: 0.0001,
	}
	for profile, want := range cases {
		if got := LodToleranceForProfile(profile); got != want {
			t.Errorf("profile %v: got %v, want %v", profile, got, want)
		}
	}
}

func TestAutoCircularSegmentsIsMultipleOfFourAndBounded(t *testing.T) {
	for _, radius := range []float64{0.01, 1, 10, 1000} {
		n := AutoCircularSegments(radius, LodModel)
		if n%4 != 0 {
			t.Errorf("radius %v: segments %d not a multiple of 4", radius, n)
		}
		if n < minCircularSegments || n > maxCircularSegments {
			t.Errorf("radius %v: segments %d out of bounds", radius, n)
		}
	}
}

func TestAutoCircularSegmentsFinerToleranceNeedsMoreSegments(t *testing.T) {
	draft := AutoCircularSegments(10, LodDraft)
	model := AutoCircularSegments(10, LodModel)
	export := AutoCircularSegments(10, LodExport3MF)
	if !(draft <= model && model <= export) {
		t.Errorf("expected draft <= model <= export, got %d %d %d", draft, model, export)
	}
}

func TestAutoCircularSegmentsToleranceAtOrAboveRadiusUsesMinimum(t *testing.T) {
	if n := circularSegmentsForRadiusAndTolerance(1, 5); n != minCircularSegments {
		t.Errorf("expected minimum segments, got %d", n)
	}
}

func TestAutoCircularSegmentsForRevolveScalesWithAngle(t *testing.T) {
	full := AutoCircularSegmentsForRevolve(10, 360, LodModel)
	half := AutoCircularSegmentsForRevolve(10, 180, LodModel)
	if half > full {
		t.Errorf("half revolve should need no more segments than full: half=%d full=%d", half, full)
	}
	if half < 3 {
		t.Errorf("expected floor of 3, got %d", half)
	}
}

func TestAutoCircularSegmentsForRevolveNonPositiveAngleFloorsAtThree(t *testing.T) {
	if n := AutoCircularSegmentsForRevolve(10, 0, LodModel); n != 3 {
		t.Errorf("expected 3, got %d", n)
	}
	if n := AutoCircularSegmentsForRevolve(10, -30, LodModel); n != 3 {
		t.Errorf("expected 3, got %d", n)
	}
}

func TestApplyReplayPostprocessDisabledReturnsSameManifold(t *testing.T) {
	k := kernel.NewReference()
	m, err := k.Sphere(1, 8)
	if err != nil {
		t.Fatalf("Sphere: %v", err)
	}
	got := ApplyReplayPostprocess(k, m, PostprocessPolicy{Enabled: false})
	if got != m {
		t.Error("expected unchanged manifold when postprocess disabled")
	}
}

func TestApplyReplayPostprocessInvalidToleranceReturnsSameManifold(t *testing.T) {
	k := kernel.NewReference()
	m, err := k.Sphere(1, 8)
	if err != nil {
		t.Fatalf("Sphere: %v", err)
	}
	got := ApplyReplayPostprocess(k, m, PostprocessPolicy{Enabled: true, Tolerance: -1})
	if got != m {
		t.Error("expected unchanged manifold for invalid tolerance")
	}
}
