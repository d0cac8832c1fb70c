package transform

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishnapaul242/gati-sub004"
)

func rid(ts int64, slug string, n int64) timescape.RID {
	return timescape.NewRID(ts, slug, n)
}

func upper(ctx context.Context, data []byte) ([]byte, error) {
	out := make([]byte, len(data))
	for i, b := range data {
		if b >= 'a' && b <= 'z' {
			b -= 32
		}
		out[i] = b
	}
	return out, nil
}

func lower(ctx context.Context, data []byte) ([]byte, error) {
	out := make([]byte, len(data))
	for i, b := range data {
		if b >= 'A' && b <= 'Z' {
			b += 32
		}
		out[i] = b
	}
	return out, nil
}

func TestRegister_RejectsNonImmutableAndDuplicate(t *testing.T) {
	e := New()
	v1, v2 := rid(100, "a", 1), rid(200, "b", 1)

	err := e.Register(Pair{From: v1, To: v2})
	assert.ErrorIs(t, err, ErrImmutableRequired)

	p := NewPair(v1, v2, "alice")
	require.NoError(t, e.Register(p))

	err = e.Register(NewPair(v2, v1, "bob"))
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
}

func TestBuildChain_LinearBothDirections(t *testing.T) {
	e := New()
	v1, v2, v3 := rid(100, "a", 1), rid(200, "b", 1), rid(300, "c", 1)
	versions := []timescape.RID{v3, v1, v2} // deliberately unsorted

	chain, err := e.BuildChain(v1, v3, versions)
	require.NoError(t, err)
	assert.Equal(t, []timescape.RID{v1, v2, v3}, chain)

	chain, err = e.BuildChain(v3, v1, versions)
	require.NoError(t, err)
	assert.Equal(t, []timescape.RID{v3, v2, v1}, chain)
}

func TestBuildChain_TooLong(t *testing.T) {
	e := New(WithMaxChainLength(1))
	v1, v2, v3 := rid(100, "a", 1), rid(200, "b", 1), rid(300, "c", 1)
	_, err := e.BuildChain(v1, v3, []timescape.RID{v1, v2, v3})
	assert.ErrorIs(t, err, ErrChainTooLong)
}

func TestTransformRequest_ChainDirection(t *testing.T) {
	e := New()
	v1, v2, v3 := rid(100, "a", 1), rid(200, "b", 1), rid(300, "c", 1)

	p12 := NewPair(v1, v2, "alice")
	p12.ForwardRequest = upper
	p12.BackwardRequest = lower
	require.NoError(t, e.Register(p12))

	p23 := NewPair(v2, v3, "alice")
	p23.ForwardRequest = upper
	p23.BackwardRequest = lower
	require.NoError(t, e.Register(p23))

	versions := []timescape.RID{v1, v2, v3}

	res := e.TransformRequest(context.Background(), []byte("hello"), v1, v3, versions, Options{})
	require.NoError(t, res.Err)
	assert.Equal(t, "HELLO", string(res.Data))
	assert.Equal(t, []timescape.RID{v1, v2, v3}, res.Visited)

	res = e.TransformRequest(context.Background(), []byte("HELLO"), v3, v1, versions, Options{})
	require.NoError(t, res.Err)
	assert.Equal(t, "hello", string(res.Data))
	assert.Equal(t, []timescape.RID{v3, v2, v1}, res.Visited)
}

func TestTransformRequest_MissingTransformerIsNoTransformerError(t *testing.T) {
	e := New()
	v1, v2 := rid(100, "a", 1), rid(200, "b", 1)
	res := e.TransformRequest(context.Background(), []byte("x"), v1, v2, []timescape.RID{v1, v2}, Options{})
	assert.ErrorIs(t, res.Err, ErrNoTransformer)
}

func TestTransformRequest_FallbackOnError(t *testing.T) {
	e := New()
	v1, v2 := rid(100, "a", 1), rid(200, "b", 1)
	p := NewPair(v1, v2, "alice")
	p.ForwardRequest = func(ctx context.Context, data []byte) ([]byte, error) {
		return nil, errors.New("boom")
	}
	require.NoError(t, e.Register(p))

	res := e.TransformRequest(context.Background(), []byte("orig"), v1, v2, []timescape.RID{v1, v2}, Options{FallbackOnError: true})
	require.Error(t, res.Err)
	assert.Equal(t, "orig", string(res.Data))
}

func TestTransformRequest_Timeout(t *testing.T) {
	e := New()
	v1, v2 := rid(100, "a", 1), rid(200, "b", 1)
	p := NewPair(v1, v2, "alice")
	p.ForwardRequest = func(ctx context.Context, data []byte) ([]byte, error) {
		select {
		case <-time.After(50 * time.Millisecond):
			return data, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	require.NoError(t, e.Register(p))

	res := e.TransformRequest(context.Background(), []byte("x"), v1, v2, []timescape.RID{v1, v2}, Options{Timeout: 5 * time.Millisecond})
	assert.ErrorIs(t, res.Err, ErrTransformerTimeout)
}

func TestTransformRequest_IdentityWhenFunctionAbsent(t *testing.T) {
	e := New()
	v1, v2 := rid(100, "a", 1), rid(200, "b", 1)
	require.NoError(t, e.Register(NewPair(v1, v2, "alice")))

	res := e.TransformRequest(context.Background(), []byte("same"), v1, v2, []timescape.RID{v1, v2}, Options{})
	require.NoError(t, res.Err)
	assert.Equal(t, "same", string(res.Data))
}

func TestTransformRequest_SameVersionIsEmptyChain(t *testing.T) {
	e := New()
	v1 := rid(100, "a", 1)
	res := e.TransformRequest(context.Background(), []byte("x"), v1, v1, []timescape.RID{v1}, Options{})
	require.NoError(t, res.Err)
	assert.Equal(t, "x", string(res.Data))
	assert.Equal(t, []timescape.RID{v1}, res.Visited)
}
