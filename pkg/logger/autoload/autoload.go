package autoload

import (
	configx "github.com/pitchside/pitchside-agent/pkg/config"
	logx "github.com/pitchside/pitchside-agent/pkg/logger"
)

func init() {
	logx.Init(*configx.MustNew[logx.Config]("LOG"))
}
