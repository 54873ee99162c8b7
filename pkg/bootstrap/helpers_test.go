package bootstrap

import (
	"github.com/rs/zerolog"

	"github.com/doodlesbykumbi/directory-sync/pkg/scheduler"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func schedulerRequest(model string) scheduler.Request {
	return scheduler.Request{Model: model, Trigger: scheduler.TriggerCLI}
}
