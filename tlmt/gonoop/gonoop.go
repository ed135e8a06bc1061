// Package gonoop provides a no-op telemetry implementation.
package gonoop

import (
	"context"

	"github.com/julien-nc/integration-suitecrm/tlmt"
)

type service struct {
}

func New() tlmt.Telemetry {
	return &service{}
}

func (s *service) Send(context.Context, tlmt.Event) error {
	return nil
}

func (s *service) Close() error {
	return nil
}
