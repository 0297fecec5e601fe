package submat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAminoAcidMatrixSelfScorePositive(t *testing.T) {
	m := NewAminoAcidMatrix()
	a := m.Encode('A')
	require.GreaterOrEqual(t, a, 0)
	require.Greater(t, m.SubMatrix[a][a], 0)
}

func TestAminoAcidMatrixLowercaseEncodesSame(t *testing.T) {
	m := NewAminoAcidMatrix()
	require.Equal(t, m.Encode('A'), m.Encode('a'))
}

func TestAminoAcidMatrixUnknownResidue(t *testing.T) {
	m := NewAminoAcidMatrix()
	require.Equal(t, -1, m.Encode('*'))
}

func TestNucleotideMatrixScores(t *testing.T) {
	m := NewNucleotideMatrix(2, -1)
	a := m.Encode('A')
	c := m.Encode('C')
	require.Equal(t, 2, m.SubMatrix[a][a])
	require.Equal(t, -1, m.SubMatrix[a][c])
}

func TestReduceShrinksAlphabet(t *testing.T) {
	full := NewAminoAcidMatrix()
	reduced, err := Reduce(full, 10)
	require.NoError(t, err)
	require.Equal(t, 10, reduced.AlphabetSize)
	require.Len(t, reduced.SubMatrix, 10)
	for _, row := range reduced.SubMatrix {
		require.Len(t, row, 10)
	}
}

func TestReduceRejectsOutOfRange(t *testing.T) {
	full := NewAminoAcidMatrix()
	_, err := Reduce(full, 0)
	require.Error(t, err)
	_, err = Reduce(full, full.AlphabetSize+1)
	require.Error(t, err)
}

func TestReduceNoopAtFullSize(t *testing.T) {
	full := NewAminoAcidMatrix()
	same, err := Reduce(full, full.AlphabetSize)
	require.NoError(t, err)
	require.Same(t, full, same)
}
