package numsolve_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/numsolve"
)

func TestSeries_Bisection(t *testing.T) {
	r, err := numsolve.Bisection("x**2 - 4", 0, 3, 1e-3, 0)
	require.NoError(t, err)

	pts := numsolve.Series(r)
	require.Len(t, pts, len(r.Steps))
	assert.Equal(t, numsolve.Point{X: 1.5, Y: -1.75}, pts[0])
	assert.Equal(t, r.Root, pts[len(pts)-1].X)
}

func TestSeries_Newton(t *testing.T) {
	r, err := numsolve.NewtonRaphson("x**2 - 4", "2*x", 3, 0, 0)
	require.NoError(t, err)

	pts := numsolve.Series(r)
	require.Len(t, pts, len(r.Steps))
	assert.Equal(t, numsolve.Point{X: 3, Y: 5}, pts[0])
}

func TestSeries_ODEStartsAtInitialCondition(t *testing.T) {
	r, err := numsolve.Euler("x + y", 0, 1, 0.5, 1)
	require.NoError(t, err)

	want := []numsolve.Point{{X: 0, Y: 1}, {X: 0.5, Y: 1.5}, {X: 1, Y: 2.5}}
	if diff := cmp.Diff(want, numsolve.Series(r), cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("Series mismatch (-want +got):\n%s", diff)
	}
}

func TestSeries_Nil(t *testing.T) {
	assert.Nil(t, numsolve.Series(nil))
}

func TestSampleFunction(t *testing.T) {
	pts, err := numsolve.SampleFunction("x**2", -1, 1, 5)
	require.NoError(t, err)

	want := []numsolve.Point{{X: -1, Y: 1}, {X: -0.5, Y: 0.25}, {X: 0, Y: 0}, {X: 0.5, Y: 0.25}, {X: 1, Y: 1}}
	if diff := cmp.Diff(want, pts, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("SampleFunction mismatch (-want +got):\n%s", diff)
	}
}

func TestSampleFunction_SkipsPoles(t *testing.T) {
	pts, err := numsolve.SampleFunction("1/x", -1, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, []numsolve.Point{{X: -1, Y: -1}, {X: 1, Y: 1}}, pts)
}

func TestSampleFunction_InvalidParameters(t *testing.T) {
	_, err := numsolve.SampleFunction("x", 1, 0, 10)
	assert.ErrorIs(t, err, numsolve.ErrInvalidParameter)

	_, err = numsolve.SampleFunction("x", 0, 1, 1)
	assert.ErrorIs(t, err, numsolve.ErrInvalidParameter)

	_, err = numsolve.SampleFunction("x + y", 0, 1, 10)
	assert.ErrorIs(t, err, numsolve.ErrUnknownIdentifier)
}
