package password

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndCompare(t *testing.T) {
	hash, err := Hash("Sup3rSecret")
	require.NoError(t, err)
	require.NotEqual(t, "Sup3rSecret", hash)

	require.NoError(t, Compare(hash, "Sup3rSecret"))
	require.Error(t, Compare(hash, "WrongPassword1"))
}

func TestHashIsSalted(t *testing.T) {
	h1, err := Hash("Sup3rSecret")
	require.NoError(t, err)
	h2, err := Hash("Sup3rSecret")
	require.NoError(t, err)
	require.NotEqual(t, h1, h2)
}
