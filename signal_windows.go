//go:build windows

package shutdown

import (
	"sync"
	"syscall"

	"golang.org/x/sys/windows"
)

const (
	ctrlCEvent        = 0
	ctrlCloseEvent    = 2
	ctrlShutdownEvent = 6
)

var (
	handlerOnce sync.Once
	handlerCh   chan struct{}
)

// DefaultSignal returns a channel that closes the first time the process
// receives a console Ctrl-C, Ctrl-Close, or system shutdown event.
//
// The handler is installed once per process; every call to DefaultSignal
// shares the same underlying channel.
func DefaultSignal() <-chan struct{} {
	handlerOnce.Do(func() {
		handlerCh = make(chan struct{})
		done := handlerCh
		handler := func(ctrlType uint32) uintptr {
			switch ctrlType {
			case ctrlCEvent, ctrlCloseEvent, ctrlShutdownEvent:
				select {
				case <-done:
				default:
					close(done)
				}
				return 1
			}
			return 0
		}
		cb := syscall.NewCallback(handler)
		_ = windows.SetConsoleCtrlHandler(cb, true)
	})
	return handlerCh
}
