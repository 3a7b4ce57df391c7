package publisher

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	NATSSetConnected(connected bool)
}

// RoutePlanned is the event sent after every successfully assembled route.
type RoutePlanned struct {
	RequestID      string    `json:"requestId"`
	PlannedAt      time.Time `json:"plannedAt"`
	SegmentIDs     []string  `json:"segmentIds"`
	VisitOrder     []int     `json:"visitOrder"`
	TotalDistance  *float64  `json:"totalDistance"`
	SegmentsLength float64   `json:"segmentsLength"`
	PointCount     int       `json:"pointCount"`
	ConnectorGaps  int       `json:"connectorGaps"`
}

// Conn is the subset of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
	Drain() error
	Close()
}

type NATSPublisher struct {
	nc      Conn
	subject string
	metrics PublisherMetrics
	log     logrus.FieldLogger
}

func NewNATSPublisher(url, subject string, m PublisherMetrics, log logrus.FieldLogger) (*NATSPublisher, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	nc, err := nats.Connect(url,
		nats.Name("segment-router"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.WithError(err).Warn("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			log.Info("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Info("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	return NewWithConn(nc, subject, m, log), nil
}

// NewWithConn wraps an existing connection.
func NewWithConn(nc Conn, subject string, m PublisherMetrics, log logrus.FieldLogger) *NATSPublisher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &NATSPublisher{nc: nc, subject: subject, metrics: m, log: log}
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
		p.nc.Close()
	}
}

func (p *NATSPublisher) PublishRoutePlanned(msg RoutePlanned) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	err = p.nc.Publish(p.subject, b)
	if p.metrics != nil {
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	if err != nil {
		p.log.WithError(err).WithField("subject", p.subject).Warn("failed to publish route event")
	}
	return err
}
