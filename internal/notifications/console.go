package notifications

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// ConsoleNotifier writes alert events to a writer, one line each. It is the
// default sink when no Telegram credentials are configured.
type ConsoleNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

func NewConsoleNotifier() *ConsoleNotifier {
	return &ConsoleNotifier{out: os.Stdout}
}

func NewConsoleNotifierTo(w io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{out: w}
}

func (c *ConsoleNotifier) Notify(event Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.out, "[%s] [%s] %s/%s %s: %s\n",
		event.Timestamp.Format("2006-01-02 15:04:05"),
		event.Severity, event.GroupID, event.SymbolKey,
		event.Condition, FormatEvent(event))
	return err
}

// MultiNotifier fans one event out to several sinks; the first error wins
// but every sink is attempted.
type MultiNotifier struct {
	sinks []Notifier
}

func NewMultiNotifier(sinks ...Notifier) *MultiNotifier {
	return &MultiNotifier{sinks: sinks}
}

func (m *MultiNotifier) Notify(event Event) error {
	var firstErr error
	for _, sink := range m.sinks {
		if err := sink.Notify(event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
