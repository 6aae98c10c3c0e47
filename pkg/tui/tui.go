package tui

import (
	"context"
)

type TUI struct {
	ctx      context.Context
	eventsCh chan Event

	// hooks into the owning loop, set by the wiring in cmd
	OnResize func(w, h int)
	OnQuit   func()
}

func New(eventsCh chan Event, ctx context.Context) *TUI {
	return &TUI{ctx: ctx, eventsCh: eventsCh}
}

func (t *TUI) Run() {
	widget := NewWidget(t.OnResize, t.OnQuit)
	go widget.Run()

	// read events from channel and update spinner/progress bar
	for {
		select {
		case <-t.ctx.Done():
			return

		case event := <-t.eventsCh:
			switch event.eventType {
			case eventTypeSpin:
				widget.SetSpinner(event.text)
			case eventTypeBar:
				widget.SetProgress(event.text, event.percent)
			case eventTypeText:
				widget.SetText(event.text)
			case eventTypeDone:
				widget.SetDone(event.text)
			}
		}
	}
}
