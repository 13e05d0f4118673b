package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
)

// StepSpinner shows progress for one step at a time, such as each gateway
// attempt of a send. With noSpin set it prints static text so piped output
// stays clean.
type StepSpinner struct {
	w      io.Writer
	s      *spinner.Spinner
	msg    string
	active bool
	noSpin bool
}

func NewStepSpinner(w io.Writer, noSpin bool) *StepSpinner {
	return &StepSpinner{w: w, noSpin: noSpin}
}

// Start begins a step labelled msg.
func (ss *StepSpinner) Start(msg string) {
	ss.msg = msg
	if ss.noSpin {
		fmt.Fprintf(ss.w, "  %s", msg)
		return
	}
	ss.s = spinner.New(
		spinner.CharSets[14],
		80*time.Millisecond,
		spinner.WithWriter(ss.w),
	)
	ss.s.Prefix = "  "
	ss.s.Suffix = " " + msg
	ss.s.Start()
	ss.active = true
}

// Done ends the step with a check mark.
func (ss *StepSpinner) Done() { ss.finish(StyleSuccess.Render(SymbolCheck), "") }

// Fail ends the step with a cross and an optional reason.
func (ss *StepSpinner) Fail(reason ...string) {
	detail := ""
	if len(reason) > 0 && reason[0] != "" {
		detail = " " + StyleHint.Render(reason[0])
	}
	ss.finish(StyleError.Render(SymbolCross), detail)
}

func (ss *StepSpinner) finish(mark, detail string) {
	if ss.noSpin {
		fmt.Fprintf(ss.w, " %s%s\n", mark, detail)
		return
	}
	ss.Stop()
	fmt.Fprintf(ss.w, "\r  %s %s%s\n", ss.msg, mark, detail)
}

// Stop halts the animation without printing a status.
func (ss *StepSpinner) Stop() {
	if ss.s != nil && ss.active {
		ss.s.Stop()
		ss.active = false
	}
}
