package consumerWorker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sgea/internal/model"
	"sgea/internal/rabbit"
	"sgea/internal/repo"
)

type fakeCompleter struct {
	mu    sync.Mutex
	calls []int64
	err   error
}

func (f *fakeCompleter) CompleteCertificate(_ context.Context, id int64) (*model.Certificate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	if f.err != nil {
		return nil, f.err
	}
	return &model.Certificate{ID: id, Status: model.CertificateIssued}, nil
}

type fakeConsumer struct {
	bodies [][]byte
	errs   []error
}

func (f *fakeConsumer) Consume(ctx context.Context, handler rabbit.Handler) error {
	for _, b := range f.bodies {
		f.errs = append(f.errs, handler(ctx, b))
	}
	<-ctx.Done()
	return nil
}

func TestHandleMessageCompletesCertificate(t *testing.T) {
	c := &fakeCompleter{}
	r := NewReader(&fakeConsumer{}, c)

	err := r.HandleMessage(context.Background(), []byte(`{"certificate_id":7,"registration_id":3,"event_id":1}`))
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, c.calls)
}

func TestHandleMessageDropsBadPayloads(t *testing.T) {
	c := &fakeCompleter{}
	r := NewReader(&fakeConsumer{}, c)

	err := r.HandleMessage(context.Background(), []byte(`not json`))
	assert.ErrorIs(t, err, rabbit.ErrDrop)

	err = r.HandleMessage(context.Background(), []byte(`{"event_id":1}`))
	assert.ErrorIs(t, err, rabbit.ErrDrop)
	assert.Empty(t, c.calls)
}

func TestHandleMessageDropsMissingCertificate(t *testing.T) {
	c := &fakeCompleter{err: repo.ErrCertificateNotFound}
	r := NewReader(&fakeConsumer{}, c)

	err := r.HandleMessage(context.Background(), []byte(`{"certificate_id":9}`))
	assert.ErrorIs(t, err, rabbit.ErrDrop)
}

func TestHandleMessageRequeuesTransientErrors(t *testing.T) {
	boom := errors.New("connection reset")
	c := &fakeCompleter{err: boom}
	r := NewReader(&fakeConsumer{}, c)

	err := r.HandleMessage(context.Background(), []byte(`{"certificate_id":9}`))
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, rabbit.ErrDrop)
}

func TestReaderStartStop(t *testing.T) {
	c := &fakeCompleter{}
	consumer := &fakeConsumer{bodies: [][]byte{
		[]byte(`{"certificate_id":1}`),
		[]byte(`{"certificate_id":2}`),
	}}
	r := NewReader(consumer, c)

	r.Start(context.Background())
	r.Stop()

	assert.Equal(t, []int64{1, 2}, c.calls)
	assert.Equal(t, []error{nil, nil}, consumer.errs)
}
