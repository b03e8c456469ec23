package parchan_test

import (
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ib-77/parchan/pkg/parchan"
)

func (s *ChannelSuite) TestDiscardFlushReturnsNil() {
	ch := parchan.New[int](s.ctx, parchan.WithDiscard(), parchan.WithConcurrency(3))
	for i := range 10 {
		s.push(ch, get(i))
	}

	values, err := ch.Flush(s.ctx)
	require.NoError(s.T(), err)
	require.Nil(s.T(), values)
	require.Equal(s.T(), 0, ch.Queue())
	require.False(s.T(), ch.Readable())
}

func (s *ChannelSuite) TestDiscardReadReturnsZeroValue() {
	ch := parchan.New[string](s.ctx, parchan.WithDiscard())
	_, err := ch.Push(parchan.Func(func() (string, error) { return "hidden", nil }))
	require.NoError(s.T(), err)

	v, err := ch.Read(s.ctx)
	require.NoError(s.T(), err)
	require.Empty(s.T(), v)

	res, ok := ch.ReadResult(s.ctx)
	require.False(s.T(), ok)
	require.True(s.T(), res.IsEmpty())
}

func (s *ChannelSuite) TestDiscardSurfacesErrors() {
	ch := parchan.New[int](s.ctx, parchan.WithDiscard(), parchan.WithConcurrency(1))
	s.push(ch, get(0), fail(), get(2))

	values, err := ch.Flush(s.ctx)
	require.ErrorIs(s.T(), err, errBoom)
	require.Nil(s.T(), values)
	var taskErr *parchan.TaskError
	require.ErrorAs(s.T(), err, &taskErr)
	require.Equal(s.T(), 1, taskErr.Index)
}

func (s *ChannelSuite) TestDiscardHaltsAndResumes() {
	ch := parchan.New[int](s.ctx, parchan.WithDiscard(), parchan.WithConcurrency(1))
	var ran atomic.Int32
	count := func() parchan.Task[int] {
		return parchan.Func(func() (int, error) {
			ran.Add(1)
			return 0, nil
		})
	}
	s.push(ch, count(), fail(), count(), count())

	_, err := ch.Flush(s.ctx)
	require.ErrorIs(s.T(), err, errBoom)

	time.Sleep(30 * time.Millisecond)
	require.Equal(s.T(), int32(1), ran.Load())
	require.True(s.T(), ch.Halted())
	require.Equal(s.T(), 2, ch.Queue())

	values, err := ch.Flush(s.ctx)
	require.NoError(s.T(), err)
	require.Nil(s.T(), values)
	require.Equal(s.T(), int32(3), ran.Load())
	require.False(s.T(), ch.Halted())
}

func (s *ChannelSuite) TestDiscardOnOpenChannel() {
	ch := parchan.New[int](s.ctx, parchan.WithOpen(), parchan.WithDiscard())
	go func() {
		for i := range 5 {
			_, _ = ch.Push(get(i))
		}
		ch.Close()
	}()

	values, err := ch.Flush(s.ctx)
	require.NoError(s.T(), err)
	require.Nil(s.T(), values)
	require.Equal(s.T(), 5, ch.Len())
	require.Equal(s.T(), 1.0, ch.Progress())
}
