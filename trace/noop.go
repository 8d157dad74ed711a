package trace

import "github.com/unbxd/go-httpinvoker/log"

type noopContext struct{}

func (noopContext) OnStart(string, string, log.Logger, string, *[]Header, []byte) Token {
	return nil
}

func (noopContext) OnSuccess(Token, log.Logger, string, int, []byte) {}

func (noopContext) OnFailure(Token, log.Logger, string, int, []byte, error) {}

// NewNoopContext returns a Context whose hooks do nothing.
func NewNoopContext() Context { return noopContext{} }
