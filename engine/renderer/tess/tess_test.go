package tess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tess := New(8, 12)
	assert.Equal(t, 8, tess.MaxVertexes())
	assert.Equal(t, 12, tess.MaxIndexes())
	assert.Len(t, tess.Normals, 8)
	assert.Empty(t, tess.Indexes)
}

func TestCheckOverflow(t *testing.T) {
	tess := New(8, 12)
	require.NoError(t, tess.CheckOverflow(8, 12))
	assert.ErrorIs(t, tess.CheckOverflow(9, 0), ErrOverflow)
	assert.ErrorIs(t, tess.CheckOverflow(0, 13), ErrOverflow)

	tess.NumVertexes = 6
	assert.NoError(t, tess.CheckOverflow(2, 0))
	assert.ErrorIs(t, tess.CheckOverflow(3, 0), ErrOverflow)
}

func TestAppendCommitReset(t *testing.T) {
	tess := New(4, 6)
	tess.CommitIndexes(append(tess.AppendIndexes(), 0, 1, 2))
	tess.CommitIndexes(append(tess.AppendIndexes(), 1, 2, 3))
	assert.Equal(t, 6, tess.NumIndexes)
	assert.Equal(t, []uint32{0, 1, 2, 1, 2, 3}, tess.Indexes)

	backing := &tess.Indexes[:1][0]
	tess.Reset()
	assert.Zero(t, tess.NumIndexes)
	assert.Zero(t, tess.NumVertexes)
	assert.Equal(t, 6, tess.MaxIndexes(), "reset keeps the allocation")

	tess.CommitIndexes(append(tess.AppendIndexes(), 7))
	assert.Same(t, backing, &tess.Indexes[0])
}
