package coroutine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContext_YieldAndResume(t *testing.T) {
	var trace []string

	ctx := New(Descriptor{
		StackSize: DefaultStackSize,
		Entry: func(c *Context) {
			trace = append(trace, "a")
			c.Yield()
			trace = append(trace, "b")
			c.Yield()
			trace = append(trace, "c")
		},
	})

	sig, err := ctx.Resume()
	require.NoError(t, err)
	assert.Equal(t, SignalYield, sig)
	assert.Equal(t, []string{"a"}, trace)
	assert.False(t, ctx.Finished())

	sig, err = ctx.Resume()
	require.NoError(t, err)
	assert.Equal(t, SignalYield, sig)
	assert.Equal(t, []string{"a", "b"}, trace)

	sig, err = ctx.Resume()
	require.NoError(t, err)
	assert.Equal(t, SignalFinished, sig)
	assert.Equal(t, []string{"a", "b", "c"}, trace)
	assert.True(t, ctx.Finished())
}

func TestContext_ResumeAfterFinishedErrors(t *testing.T) {
	ctx := New(Descriptor{Entry: func(c *Context) {}})

	sig, err := ctx.Resume()
	require.NoError(t, err)
	assert.Equal(t, SignalFinished, sig)

	_, err = ctx.Resume()
	assert.ErrorIs(t, err, ErrAlreadyFinished)
}

func TestContext_RecoversPanic(t *testing.T) {
	ctx := New(Descriptor{Entry: func(c *Context) {
		panic("boom")
	}})

	sig, err := ctx.Resume()
	require.NoError(t, err)
	assert.Equal(t, SignalFinished, sig)

	val, ok := ctx.Recovered()
	assert.True(t, ok)
	assert.Equal(t, "boom", val)
}

func TestContext_UserData(t *testing.T) {
	ctx := New(Descriptor{Entry: func(c *Context) {
		c.Yield()
	}})
	ctx.UserData = "payload"

	_, err := ctx.Resume()
	require.NoError(t, err)
	assert.Equal(t, "payload", ctx.UserData)
}
