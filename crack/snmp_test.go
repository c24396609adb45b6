package crack

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSnmpSnapshot(t *testing.T) {
	s := newSnmp()
	s.HashesTried.Add(10)
	s.Collisions.Add(2)

	require.Len(t, s.ToSlice(), len(s.Header()))

	snap := s.Copy()
	s.HashesTried.Add(5)
	require.Equal(t, uint64(10), snap.HashesTried.Load())
	require.Equal(t, uint64(15), s.HashesTried.Load())

	s.Reset()
	require.Equal(t, uint64(0), s.HashesTried.Load())
	require.Equal(t, uint64(0), s.Collisions.Load())
}
