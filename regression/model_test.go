package regression

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/linmix/model"
	"github.com/arloliu/linmix/tensor"
)

func exampleDataset(t *testing.T, xErr, yErr float64) Dataset {
	t.Helper()

	n := len(exampleX)
	xe := make([]float64, n)
	ye := make([]float64, n)
	for i := range n {
		xe[i] = xErr
		ye[i] = yErr
	}
	ds, err := NewDataset1D(exampleX, xe, exampleY, ye)
	require.NoError(t, err)

	return ds
}

func TestBuildModel_Variables(t *testing.T) {
	ds := exampleDataset(t, 0.1, 0.1)
	m, err := BuildModel(ds)
	require.NoError(t, err)

	want := map[string]tensor.Shape{
		VarSlope:     {1},
		VarIntercept: {},
		VarIntStd:    {},
		VarTau:       {1},
		VarMu:        {1},
		VarKsi:       {5, 1},
		VarEta:       {5},
		VarX:         {1, 5},
		VarY:         {5},
	}
	vars := m.Variables()
	require.Len(t, vars, len(want))
	for _, v := range vars {
		require.True(t, v.Shape.Equal(want[v.Name]), "%s has shape %s", v.Name, v.Shape)
	}

	latent := make([]string, 0, len(LatentVariables))
	for _, v := range m.Latent() {
		latent = append(latent, v.Name)
	}
	require.Equal(t, LatentVariables, latent)

	x, ok := m.Variable(VarX)
	require.True(t, ok)
	require.True(t, x.IsObserved())
	require.Equal(t, exampleX, x.Observed.Data)

	ksi, _ := m.Variable(VarKsi)
	require.Equal(t, exampleX, ksi.Init.Data)
	require.Zero(t, ksi.PinnedCount())

	mu, _ := m.Variable(VarMu)
	require.InDelta(t, 3.0, mu.Init.Data[0], 1e-12)
	tau, _ := m.Variable(VarTau)
	require.InDelta(t, 1.4142135623730951, tau.Init.Data[0], 1e-12)
}

func TestBuildModel_Compile(t *testing.T) {
	m, err := BuildModel(exampleDataset(t, 0.1, 0.1))
	require.NoError(t, err)

	c, err := m.Compile()
	require.NoError(t, err)
	require.Equal(t, []string{VarEta}, c.Collapsed())
	// slope, intercept, int_std, tau, mu, five ksi
	require.Equal(t, 10, c.Dim())
	require.Equal(t, 1+1+1+1+1+5+5, c.OutputSize())
}

func TestBuildModel_PinsExactCovariates(t *testing.T) {
	ds, err := NewDataset1D(exampleX, []float64{0.1, 0, 0.1, 0, 0.1}, exampleY, []float64{0.1, 0.1, 0.1, 0.1, 0.1})
	require.NoError(t, err)

	m, err := BuildModel(ds)
	require.NoError(t, err)

	ksi, _ := m.Variable(VarKsi)
	require.Equal(t, 2, ksi.PinnedCount())
	require.Equal(t, []bool{false, true, false, true, false}, ksi.Pinned)

	c, err := m.Compile()
	require.NoError(t, err)
	require.Equal(t, 8, c.Dim())
}

func TestBuildModel_PinsNoiselessResponses(t *testing.T) {
	ds, err := NewDataset1D(exampleX, []float64{0.1, 0.1, 0.1, 0.1, 0.1}, exampleY, []float64{0.1, 0, 0.1, 0.1, 0.1})
	require.NoError(t, err)

	m, err := BuildModel(ds)
	require.NoError(t, err)

	eta, _ := m.Variable(VarEta)
	require.Equal(t, []bool{false, true, false, false, false}, eta.Pinned)
	require.Equal(t, exampleY[1], eta.PinnedValues[1])

	// the pin matches the noiseless observation, so eta still collapses
	c, err := m.Compile()
	require.NoError(t, err)
	require.Equal(t, []string{VarEta}, c.Collapsed())
	require.Equal(t, 10, c.Dim())

	full, err := m.Compile(model.WithoutCollapse())
	require.NoError(t, err)
	require.Empty(t, full.Collapsed())
	require.Equal(t, 14, full.Dim())
}

func TestBuildModel_TwoCovariates(t *testing.T) {
	x, err := tensor.AsRows([]float64{1, 2, 3, 4}, []float64{5, 5, 5, 5})
	require.NoError(t, err)
	xErr, err := tensor.AsRows([]float64{0.1, 0.1, 0.1, 0.1}, []float64{0.2, 0.2, 0.2, 0.2})
	require.NoError(t, err)

	ds, err := NewDataset(x, xErr, []float64{1, 2, 3, 4}, []float64{0.1, 0.1, 0.1, 0.1})
	require.NoError(t, err)

	m, err := BuildModel(ds)
	require.NoError(t, err)

	ksi, _ := m.Variable(VarKsi)
	require.True(t, ksi.Shape.Equal(tensor.Shape{4, 2}))
	// (N, D) layout: observation rows, covariate columns
	require.Equal(t, []float64{1, 5, 2, 5, 3, 5, 4, 5}, ksi.Init.Data)

	// a constant covariate still starts tau inside its support
	tau, _ := m.Variable(VarTau)
	require.Equal(t, 1.0, tau.Init.Data[1])
}
