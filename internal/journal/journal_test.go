package journal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capture struct {
	got []Action
	err error
}

func (c *capture) Record(_ context.Context, a Action) error {
	c.got = append(c.got, a)
	return c.err
}

func TestNew(t *testing.T) {
	a := New(KindCallAttempt, TargetCallListItem, 7, "Logged no_answer")
	assert.NotEmpty(t, a.ID)
	assert.False(t, a.At.IsZero())
	assert.Equal(t, 7, a.TargetID)
}

func TestWith_DoesNotMutateOriginal(t *testing.T) {
	a := New(KindNoteAdded, TargetUser, 1, "note")
	b := a.With("length", 42)
	assert.Nil(t, a.Detail)
	assert.Equal(t, 42, b.Detail["length"])

	c := b.With("pinned", true)
	assert.Len(t, b.Detail, 1)
	assert.Len(t, c.Detail, 2)
}

func TestMulti_AttemptsAll(t *testing.T) {
	first := &capture{err: errors.New("disk full")}
	second := &capture{}
	m := Multi{first, nil, second}

	err := m.Record(context.Background(), New(KindExport, "", 0, "users"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Len(t, first.got, 1)
	assert.Len(t, second.got, 1)
}

func TestWithActor(t *testing.T) {
	c := &capture{}
	r := WithActor(c, func() string { return "admin@example.org" })

	require.NoError(t, r.Record(context.Background(), New(KindLogin, "", 0, "login")))
	pre := New(KindLogout, "", 0, "logout")
	pre.Actor = "other@example.org"
	require.NoError(t, r.Record(context.Background(), pre))

	require.Len(t, c.got, 2)
	assert.Equal(t, "admin@example.org", c.got[0].Actor)
	assert.Equal(t, "other@example.org", c.got[1].Actor)
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.Record(context.Background(), Action{}))
}
