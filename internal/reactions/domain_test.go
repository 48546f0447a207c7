package reactions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	rows map[Type]bool
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[Type]bool)}
}

func (m *memStore) Has(_ int64, _ string, t Type) (bool, error) { return m.rows[t], nil }

func (m *memStore) Delete(_ int64, _ string, t Type) error {
	delete(m.rows, t)
	return nil
}

func (m *memStore) DeleteOthers(_ int64, _ string, keep Type) error {
	for t := range m.rows {
		if t != keep {
			delete(m.rows, t)
		}
	}
	return nil
}

func (m *memStore) Insert(_ int64, _ string, t Type) error {
	m.rows[t] = true
	return nil
}

func (m *memStore) active() []Type {
	var out []Type
	for t, present := range m.rows {
		if present {
			out = append(out, t)
		}
	}
	return out
}

func TestToggleIsAnInvolution(t *testing.T) {
	s := newMemStore()

	require.NoError(t, toggle(s, 1, "visitor", TypeHeart))
	assert.Equal(t, []Type{TypeHeart}, s.active())

	require.NoError(t, toggle(s, 1, "visitor", TypeHeart))
	assert.Empty(t, s.active(), "toggling twice returns to no reaction")
}

func TestToggleIsExclusivePerVisitor(t *testing.T) {
	s := newMemStore()

	require.NoError(t, toggle(s, 1, "visitor", TypeHeart))
	require.NoError(t, toggle(s, 1, "visitor", TypeFire))

	assert.Equal(t, []Type{TypeFire}, s.active(), "setting a second type replaces the first")
}

func TestValidType(t *testing.T) {
	for _, rt := range Types() {
		assert.True(t, ValidType(rt))
	}
	assert.False(t, ValidType("thumbsdown"))
	assert.False(t, ValidType(""))
}
