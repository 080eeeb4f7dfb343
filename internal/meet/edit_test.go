package meet

import (
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestEditStateCycle(t *testing.T) {
    s := NewEditState()
    assert.False(t, s.Editing(3))

    require.NoError(t, s.Begin(3))
    assert.True(t, s.Editing(3))
    assert.False(t, s.Editing(4))
    assert.ErrorIs(t, s.Begin(3), ErrAlreadyEditing)

    require.NoError(t, s.Submit(3))
    assert.False(t, s.Editing(3))
    assert.ErrorIs(t, s.Submit(3), ErrNotEditing)
}

func TestEditStatesAreIndependent(t *testing.T) {
    a, b := NewEditState(), NewEditState()
    require.NoError(t, a.Begin(1))
    assert.False(t, b.Editing(1))
}
