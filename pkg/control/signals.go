package control

import (
	"os"
	"os/signal"
	"syscall"
)

// SignalCommands maps process signals to control commands.
var SignalCommands = map[os.Signal]Command{
	os.Interrupt:    Shutdown,
	syscall.SIGTERM: Shutdown,
	syscall.SIGHUP:  Restart,
}

// NotifySignals forwards SIGINT and SIGTERM as Shutdown and SIGHUP as Restart
// to s. The forwarding goroutine only queues commands. Call the returned
// function to stop forwarding.
func NotifySignals(s Sender) (stop func()) {
	sigChan := make(chan os.Signal, 1)
	signals := make([]os.Signal, 0, len(SignalCommands))
	for sig := range SignalCommands {
		signals = append(signals, sig)
	}
	signal.Notify(sigChan, signals...)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-sigChan:
				s.Send(SignalCommands[sig])
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigChan)
		close(done)
	}
}
