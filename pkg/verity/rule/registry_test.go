package rule

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/verity/pkg/verity/fscache"
)

func passing(id string, group int) Rule {
	return Func(id, group, func(context.Context, *fscache.Cache) (Result, error) {
		return Pass(), nil
	})
}

func TestRegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(passing("a", 0), passing("b", 0)))

	assert.Equal(t, 2, reg.Len())
	assert.NotNil(t, reg.Get("a"))
	assert.Nil(t, reg.Get("missing"))
	assert.Equal(t, []string{"a", "b"}, reg.IDs())
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(passing("dup", 0)))

	err := reg.Register(passing("dup", 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dup")
	assert.Equal(t, 1, reg.Len())
}

func TestRegisterRejectsEmptyID(t *testing.T) {
	reg := NewRegistry()
	assert.Error(t, reg.Register(passing("", 0)))
}

func TestMustRegisterPanicsOnDuplicate(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(passing("a", 0))
	assert.Panics(t, func() { reg.MustRegister(passing("a", 0)) })
}

func TestBatchesGroupOrdering(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(
		passing("late", 5),
		passing("mid-b", 2),
		passing("mid-a", 2),
		passing("early", 0),
	))

	batches := reg.Batches()
	require.Len(t, batches, 3)

	assert.Equal(t, "early", batches[0][0].ID())
	require.Len(t, batches[1], 2)
	assert.Equal(t, "mid-a", batches[1][0].ID())
	assert.Equal(t, "mid-b", batches[1][1].ID())
	assert.Equal(t, "late", batches[2][0].ID())
}

func TestBatchesSparseGroups(t *testing.T) {
	// Group ordinals need not be contiguous; only their order matters.
	reg := NewRegistry()
	require.NoError(t, reg.Register(passing("a", 10), passing("b", 100)))

	batches := reg.Batches()
	require.Len(t, batches, 2)
	assert.Equal(t, "a", batches[0][0].ID())
	assert.Equal(t, "b", batches[1][0].ID())
}

func TestBatchesEmptyRegistry(t *testing.T) {
	assert.Empty(t, NewRegistry().Batches())
}

func TestFuncAdapter(t *testing.T) {
	r := Func("check", 3, func(context.Context, *fscache.Cache) (Result, error) {
		return Fail("bad structure"), nil
	})

	assert.Equal(t, "check", r.ID())
	assert.Equal(t, 3, r.Group())

	res, err := r.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, res.Passed)
	assert.Equal(t, "bad structure", res.Evidence)
}
