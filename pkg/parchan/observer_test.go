package parchan_test

import (
	"sync"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ib-77/parchan/pkg/parchan"
)

type recorder struct {
	mu        sync.Mutex
	submitted int
	started   int
	finished  int
	failed    int
	read      []int
	halts     []bool
	lifecycle []bool
}

func (r *recorder) TaskSubmitted(int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submitted++
}

func (r *recorder) TaskStarted(int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *recorder) TaskFinished(_ int, err error, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished++
	if err != nil {
		r.failed++
	}
}

func (r *recorder) ResultRead(index int, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.read = append(r.read, index)
}

func (r *recorder) Halted(halted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.halts = append(r.halts, halted)
}

func (r *recorder) Lifecycle(open bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lifecycle = append(r.lifecycle, open)
}

func (s *ChannelSuite) TestObserverSeesEveryEvent() {
	rec := &recorder{}
	ch := parchan.New[int](s.ctx, parchan.WithObserver(rec), parchan.WithOpen(), parchan.WithConcurrency(1))
	s.push(ch, get(0), fail(), get(2))
	ch.Close()
	ch.Close()

	_, err := ch.Flush(s.ctx)
	require.ErrorIs(s.T(), err, errBoom)
	values, err := ch.Flush(s.ctx)
	require.NoError(s.T(), err)
	require.Equal(s.T(), []int{2}, values)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Equal(s.T(), 3, rec.submitted)
	require.Equal(s.T(), 3, rec.started)
	require.Equal(s.T(), 3, rec.finished)
	require.Equal(s.T(), 1, rec.failed)
	require.Equal(s.T(), []int{0, 1, 2}, rec.read)
	require.Equal(s.T(), []bool{true, false}, rec.halts)
	require.Equal(s.T(), []bool{true, false}, rec.lifecycle)
}
