package motorsim

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/gurisko/fide/internal/logging"
)

// DefaultSubject is the NATS subject telemetry samples are published on.
const DefaultSubject = "fide.motorsim.telemetry"

var errNATSClosed = errors.New("nats not connected")

// NATSSink publishes every sample as JSON on a NATS subject.
type NATSSink struct {
	nc      *nats.Conn
	subject string
}

func NewNATSSink(url, subject string, logger *zap.Logger) (*NATSSink, error) {
	logger = logging.Ensure(logger)
	if subject == "" {
		subject = DefaultSubject
	}

	opts := []nats.Option{
		nats.Name("fide-motorsim"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}
	return &NATSSink{nc: nc, subject: subject}, nil
}

func (s *NATSSink) Record(_ context.Context, t Telemetry) error {
	if s.nc == nil || s.nc.IsClosed() {
		return errNATSClosed
	}
	payload, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return s.nc.Publish(s.subject, payload)
}

func (s *NATSSink) Close() error {
	if s.nc == nil {
		return nil
	}
	err := s.nc.Drain()
	s.nc.Close()
	return err
}
