package display

import (
	"fmt"
	"os"
	"sync"

	"github.com/pterm/pterm"

	"github.com/backmassage/ogimage/internal/term"
)

// Logger is the subset of the logging facade the progress fallback needs.
type Logger interface {
	Debug(string, ...interface{})
}

// Progress is advanced once per finished task. It is purely observational.
type Progress interface {
	Advance(name string, ok bool)
	Stop()
}

// NewProgress returns a live pterm bar on a TTY and a DEBUG breadcrumb
// counter otherwise (piped output and log files get one line per item).
func NewProgress(total int, log Logger) Progress {
	if total > 0 && term.IsTerminal(os.Stdout) {
		bar, err := pterm.DefaultProgressbar.
			WithTotal(total).
			WithTitle("Converting").
			WithRemoveWhenDone(true).
			Start()
		if err == nil {
			return &barProgress{bar: bar}
		}
	}
	return &counterProgress{total: total, log: log}
}

type barProgress struct {
	mu  sync.Mutex
	bar *pterm.ProgressbarPrinter
}

func (p *barProgress) Advance(name string, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	title := "Converting " + truncate(name, 40)
	if !ok {
		title = "Failed " + truncate(name, 40)
	}
	p.bar.UpdateTitle(title)
	p.bar.Increment()
}

func (p *barProgress) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = p.bar.Stop()
}

type counterProgress struct {
	mu      sync.Mutex
	current int
	total   int
	log     Logger
}

func (p *counterProgress) Advance(name string, ok bool) {
	p.mu.Lock()
	p.current++
	current := p.current
	p.mu.Unlock()

	status := "ok"
	if !ok {
		status = "failed"
	}
	p.log.Debug("[%s] %s %s", FormatRatio(current, p.total), name, status)
}

func (p *counterProgress) Stop() {}

// Count returns how many items have been reported so far.
func (p *counterProgress) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return fmt.Sprintf("%s…", string(r[:n-1]))
}
