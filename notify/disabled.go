package notify

import (
	"context"
	"errors"
)

var errPushDisabled = errors.New("push delivery is not configured")

// DisabledSender подставляется вместо FCM, когда креды не заданы:
// сервер поднимается, но каждая рассылка завершается ошибкой провайдера.
type DisabledSender struct{}

func NewDisabledSender() *DisabledSender {
	return &DisabledSender{}
}

func (s *DisabledSender) SendMulticast(_ context.Context, _ []string, _ Message) ([]TokenResult, error) {
	return nil, errPushDisabled
}
