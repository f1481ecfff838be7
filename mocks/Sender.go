package mocks

import (
	"github.com/bitrise-steplib/steps-frontend-tasks/notify"
	"github.com/stretchr/testify/mock"
)

type Sender struct {
	mock.Mock
}

func (_m *Sender) Send(notification notify.Notification) error {
	args := _m.Called(notification)
	return args.Error(0)
}
