package main

import (
	"bufio"
	"context"
	"io"

	"github.com/FocuswithJustin/verbum/internal/render"
	"github.com/FocuswithJustin/verbum/internal/session"
)

const (
	prompt  = "verbum> "
	welcome = "Verbum: enter a reference to begin.\n" + session.ReferenceHint + "\nType :help for commands, :quit to leave."
)

// repl reads lines from in until EOF, :quit or ctx is done. A non-empty
// initial reference is loaded before the first prompt.
func repl(ctx context.Context, stepper *session.Stepper, r *render.Renderer, in io.Reader, initial string) error {
	if err := r.Panel(welcome); err != nil {
		return err
	}

	var st session.State
	if initial != "" {
		var reply session.Reply
		st, reply = stepper.Step(ctx, st, initial)
		if err := show(r, reply); err != nil {
			return err
		}
	}

	scanner := bufio.NewScanner(in)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if err := r.Prompt(prompt); err != nil {
			return err
		}
		if !scanner.Scan() {
			return scanner.Err()
		}

		var reply session.Reply
		st, reply = stepper.Step(ctx, st, scanner.Text())
		if err := show(r, reply); err != nil {
			return err
		}
		if reply.Kind == session.KindQuit {
			return nil
		}
	}
}

// show renders one reply.
func show(r *render.Renderer, reply session.Reply) error {
	switch reply.Kind {
	case session.KindPassage:
		if c := reply.Correction; c != nil {
			if err := r.Corrected(c.Canonical, c.Entered); err != nil {
				return err
			}
		}
		if err := r.Passage(*reply.Locator, reply.Verses); err != nil {
			return err
		}
		return r.Loaded(*reply.Locator)
	case session.KindHelp:
		return r.Panel(reply.Message)
	case session.KindHint, session.KindQuit:
		return r.Hint(reply.Message)
	case session.KindError:
		return r.Error(reply.Message, reply.Hint)
	}
	return nil
}
