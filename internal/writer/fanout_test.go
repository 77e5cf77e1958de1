package writer

import (
	"fmt"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/grafana/statsdaggd/internal/aggregate"
)

type fakeWriter struct {
	mu      sync.Mutex
	batches [][]aggregate.Emission
	failN   int
	closed  bool
}

func (f *fakeWriter) Write(batch []aggregate.Emission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failN > 0 {
		f.failN--
		return fmt.Errorf("fake write failure")
	}
	f.batches = append(f.batches, batch)
	return nil
}

func (f *fakeWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeWriter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func TestFanout_WritesToEveryBackend(t *testing.T) {
	a := &fakeWriter{}
	b := &fakeWriter{}
	f := NewFanout(logrus.New(), a, b)

	batch := []aggregate.Emission{{Name: []byte("stats.foo"), Value: 1, Timestamp: 100}}
	require.NoError(t, f.Write(batch))
	require.Equal(t, 1, a.count())
	require.Equal(t, 1, b.count())
}

func TestFanout_OneBackendFailureDoesNotBlockOthers(t *testing.T) {
	failing := &fakeWriter{failN: 1}
	healthy := &fakeWriter{}
	f := NewFanout(logrus.New(), failing, healthy)

	batch := []aggregate.Emission{{Name: []byte("stats.foo"), Value: 1, Timestamp: 100}}
	require.NoError(t, f.Write(batch))
	require.Equal(t, 0, failing.count())
	require.Equal(t, 1, healthy.count())
}

func TestFanout_CloseClosesAllBackends(t *testing.T) {
	a := &fakeWriter{}
	b := &fakeWriter{}
	f := NewFanout(logrus.New(), a, b)
	require.NoError(t, f.Close())
	require.True(t, a.closed)
	require.True(t, b.closed)
}

func TestSpoolWriter_QueuesOnFailure(t *testing.T) {
	inner := &fakeWriter{failN: 1}
	s := NewSpoolWriter(inner, 10, logrus.New())

	batch := []aggregate.Emission{{Name: []byte("stats.foo"), Value: 1, Timestamp: 100}}
	err := s.Write(batch)
	require.Error(t, err)
	require.Equal(t, 0, inner.count())

	s.mu.Lock()
	queuedLen := len(s.queued)
	s.mu.Unlock()
	require.Equal(t, 1, queuedLen)
}

func TestSpoolWriter_DropsOldestWhenFull(t *testing.T) {
	inner := &fakeWriter{failN: 100}
	s := NewSpoolWriter(inner, 2, logrus.New())

	for i := 0; i < 3; i++ {
		batch := []aggregate.Emission{{Name: []byte(fmt.Sprintf("stats.foo%d", i)), Value: 1, Timestamp: 100}}
		_ = s.Write(batch)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	require.Len(t, s.queued, 2)
}
