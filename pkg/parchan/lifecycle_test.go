package parchan_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ib-77/parchan/pkg/parchan"
)

func (s *ChannelSuite) TestDefaultsToClosed() {
	ch := parchan.New[int](s.ctx)
	require.True(s.T(), ch.IsClosed())
	require.False(s.T(), ch.Readable())

	values, err := ch.Flush(s.ctx)
	require.NoError(s.T(), err)
	require.Empty(s.T(), values)

	_, err = ch.Read(s.ctx)
	require.ErrorIs(s.T(), err, parchan.ErrDrained)
}

func (s *ChannelSuite) TestOpenAndCloseAreIdempotent() {
	ch := parchan.New[int](s.ctx)
	ch.Open()
	ch.Open()
	require.False(s.T(), ch.IsClosed())
	require.True(s.T(), ch.Readable())

	ch.Close()
	ch.Close()
	require.True(s.T(), ch.IsClosed())
	require.False(s.T(), ch.Readable())
}

func (s *ChannelSuite) TestFlushWaitsOnOpenChannel() {
	ch := parchan.New[int](s.ctx, parchan.WithOpen(), parchan.WithConcurrency(1))

	type flushed struct {
		values []int
		err    error
	}
	out := make(chan flushed, 1)
	go func() {
		values, err := ch.Flush(s.ctx)
		out <- flushed{values, err}
	}()

	select {
	case <-out:
		s.T().Fatal("flush returned while the channel was open")
	case <-time.After(30 * time.Millisecond):
	}

	s.push(ch, get(0), get(1), get(2))
	ch.Close()

	select {
	case f := <-out:
		require.NoError(s.T(), f.err)
		require.Equal(s.T(), []int{0, 1, 2}, f.values)
	case <-s.ctx.Done():
		s.T().Fatal("flush did not return after close")
	}
}

func (s *ChannelSuite) TestConsumerKeepsUpWithLateProducer() {
	ch := parchan.New[int](s.ctx, parchan.WithOpen(), parchan.WithConcurrency(2))
	go func() {
		for i := range 6 {
			time.Sleep(2 * time.Millisecond)
			_, _ = ch.Push(get(i))
		}
		_, _ = ch.Push(parchan.EndOfWork[int]())
	}()

	values, err := ch.Flush(s.ctx)
	require.NoError(s.T(), err)
	require.Equal(s.T(), []int{0, 1, 2, 3, 4, 5}, values)
}

func (s *ChannelSuite) TestPushedReturnsImmediately() {
	ch := parchan.New[int](s.ctx)
	ok, err := ch.Pushed(s.ctx)
	require.NoError(s.T(), err)
	require.False(s.T(), ok)

	s.push(ch, get(1))
	ok, err = ch.Pushed(s.ctx)
	require.NoError(s.T(), err)
	require.True(s.T(), ok)
}

func (s *ChannelSuite) TestPushedWaitsForPush() {
	ch := parchan.New[int](s.ctx, parchan.WithOpen())
	time.AfterFunc(10*time.Millisecond, func() { _, _ = ch.Push(get(1)) })

	ok, err := ch.Pushed(s.ctx)
	require.NoError(s.T(), err)
	require.True(s.T(), ok)
}

func (s *ChannelSuite) TestPushedWaitsForClose() {
	ch := parchan.New[int](s.ctx, parchan.WithOpen())
	time.AfterFunc(10*time.Millisecond, ch.Close)

	ok, err := ch.Pushed(s.ctx)
	require.NoError(s.T(), err)
	require.False(s.T(), ok)
}

func (s *ChannelSuite) TestPushedHonorsContext() {
	ch := parchan.New[int](s.ctx, parchan.WithOpen())
	ctx, cancel := context.WithTimeout(s.ctx, 10*time.Millisecond)
	defer cancel()

	ok, err := ch.Pushed(ctx)
	require.ErrorIs(s.T(), err, context.DeadlineExceeded)
	require.False(s.T(), ok)
}

func (s *ChannelSuite) TestPushAfterCloseIsAccepted() {
	ch := parchan.New[int](s.ctx)
	ch.Close()
	s.push(ch, get(4))
	require.True(s.T(), ch.Readable())

	v, err := ch.Read(s.ctx)
	require.NoError(s.T(), err)
	require.Equal(s.T(), 4, v)
}

func (s *ChannelSuite) TestReadersShareTheOrder() {
	ch := parchan.New[int](s.ctx, parchan.WithConcurrency(3))
	for i := range 20 {
		s.push(ch, get(i))
	}

	got := make(chan int, 20)
	done := make(chan struct{}, 2)
	for range 2 {
		go func() {
			defer func() { done <- struct{}{} }()
			for {
				v, err := ch.Read(s.ctx)
				if err != nil {
					return
				}
				got <- v
			}
		}()
	}
	<-done
	<-done
	close(got)

	seen := make(map[int]bool)
	for v := range got {
		require.False(s.T(), seen[v], "value %d read twice", v)
		seen[v] = true
	}
	require.Len(s.T(), seen, 20)
}

func (s *ChannelSuite) TestConcurrentReadersResumeAfterFailure() {
	for _, discard := range []bool{false, true} {
		s.Run(fmt.Sprintf("discard=%v", discard), func() {
			ch := parchan.New[int](s.ctx, parchan.WithConcurrency(1))
			require.NoError(s.T(), ch.SetDiscard(discard))

			gate := make(chan struct{})
			s.push(ch, parchan.Func(func() (int, error) {
				<-gate
				return 0, errBoom
			}), get(1), get(2))

			type outcome struct {
				value int
				err   error
			}
			out := make(chan outcome, 8)
			var wg sync.WaitGroup
			for range 2 {
				wg.Go(func() {
					for {
						v, err := ch.Read(s.ctx)
						if errors.Is(err, parchan.ErrDrained) {
							return
						}
						out <- outcome{v, err}
						if err != nil && !errors.Is(err, errBoom) {
							return
						}
					}
				})
			}

			// both readers wait on the failing task
			time.Sleep(20 * time.Millisecond)
			close(gate)
			wg.Wait()
			close(out)

			var values []int
			failures := 0
			for o := range out {
				if o.err != nil {
					require.ErrorIs(s.T(), o.err, errBoom)
					failures++
					continue
				}
				values = append(values, o.value)
			}
			require.Equal(s.T(), 1, failures)
			if discard {
				require.Equal(s.T(), []int{0, 0}, values)
			} else {
				require.ElementsMatch(s.T(), []int{1, 2}, values)
			}
			require.False(s.T(), ch.Halted())
			require.Equal(s.T(), 0, ch.Queue())
		})
	}
}
