package consumerWorker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wb-go/wbf/zlog"

	"sgea/internal/dto"
	"sgea/internal/model"
	"sgea/internal/rabbit"
)

type Consumer interface {
	Consume(ctx context.Context, handler rabbit.Handler) error
}

// Completer finishes a pending certificate.
type Completer interface {
	CompleteCertificate(ctx context.Context, certificateID int64) (*model.Certificate, error)
}

type Reader struct {
	consumer  Consumer
	completer Completer
	done      chan struct{}
	cancel    context.CancelFunc
}

func NewReader(consumer Consumer, completer Completer) *Reader {
	return &Reader{
		consumer:  consumer,
		completer: completer,
		done:      make(chan struct{}),
	}
}

func (r *Reader) Start(ctx context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	zlog.Logger.Info().Msg("certificate worker started")

	go func() {
		defer close(r.done)
		if err := r.consumer.Consume(cctx, r.HandleMessage); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to start consuming")
			return
		}
		zlog.Logger.Info().Msg("certificate worker stopped")
	}()
}

// HandleMessage completes the certificate named by one queued job.
func (r *Reader) HandleMessage(ctx context.Context, body []byte) error {
	var msg dto.CertificateIssueMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		zlog.Logger.Error().Err(err).Str("body", string(body)).Msg("failed to unmarshal message")
		return fmt.Errorf("%w: %v", rabbit.ErrDrop, err)
	}
	if msg.CertificateID <= 0 {
		return fmt.Errorf("%w: missing certificate id", rabbit.ErrDrop)
	}

	cert, err := r.completer.CompleteCertificate(ctx, msg.CertificateID)
	if errors.Is(err, model.ErrNotFound) {
		zlog.Logger.Warn().
			Int64("certificate_id", msg.CertificateID).
			Msg("certificate no longer exists, skipping")
		return fmt.Errorf("%w: %v", rabbit.ErrDrop, err)
	}
	if err != nil {
		zlog.Logger.Error().
			Err(err).
			Int64("certificate_id", msg.CertificateID).
			Msg("failed to complete certificate")
		return err
	}

	zlog.Logger.Info().
		Int64("certificate_id", cert.ID).
		Int64("event_id", msg.EventID).
		Str("status", string(cert.Status)).
		Msg("certificate job processed")
	return nil
}

func (r *Reader) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}
