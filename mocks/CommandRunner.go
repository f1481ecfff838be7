package mocks

import (
	"github.com/bitrise-io/go-utils/v2/command"
	"github.com/stretchr/testify/mock"
)

type CommandRunner struct {
	mock.Mock
}

func (_m *CommandRunner) Run(name string, args []string, opts *command.Opts) (int, error) {
	ret := _m.Called(name, args, opts)
	var err error
	if len(ret) > 1 {
		err = ret.Error(1)
	}
	return ret.Int(0), err
}
