// Package session interprets reader input one line at a time.
//
// The current position is an immutable State value. Step takes the previous
// State and a line of input and returns the next State together with a Reply
// describing what to show. The caller owns the State and decides where it
// lives: a local variable in the terminal loop, or one per websocket
// connection in the server.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/FocuswithJustin/verbum/core/corpus"
	"github.com/FocuswithJustin/verbum/core/navigate"
	"github.com/FocuswithJustin/verbum/core/ref"
	"github.com/FocuswithJustin/verbum/internal/logging"
)

// ReferenceHint follows an unrecognized reference.
const ReferenceHint = "Examples: John 1, John 1:1, Psalm 23:1-4"

// HelpText lists the commands Step understands.
const HelpText = `Available commands
:next       Move forward to the next passage
:prev       Return to the previous passage
:help       Show this list
:quit, q    Exit Verbum

You can enter any reference directly:
  John 3:16     single verse
  Genesis 1     full chapter
  Psalm 23:1-4  range`

// Command is a classified input line.
type Command int

const (
	CmdReference Command = iota
	CmdNext
	CmdPrev
	CmdHelp
	CmdQuit
	CmdUnknown
	CmdEmpty
)

var commands = map[string]Command{
	":next": CmdNext, "next": CmdNext, "nxt": CmdNext,
	":prev": CmdPrev, "prev": CmdPrev, "previous": CmdPrev, "back": CmdPrev,
	":help": CmdHelp, "help": CmdHelp, "h": CmdHelp, "?": CmdHelp,
	":quit": CmdQuit, "quit": CmdQuit, "exit": CmdQuit, "q": CmdQuit,
}

var commandNames = [...]string{
	CmdReference: "reference",
	CmdNext:      "next",
	CmdPrev:      "prev",
	CmdHelp:      "help",
	CmdQuit:      "quit",
	CmdUnknown:   "unknown",
	CmdEmpty:     "empty",
}

func (c Command) String() string {
	if c < 0 || int(c) >= len(commandNames) {
		return fmt.Sprintf("Command(%d)", int(c))
	}
	return commandNames[c]
}

// MarshalText encodes c by name, so replies carry "command":"next".
func (c Command) MarshalText() ([]byte, error) {
	if c < 0 || int(c) >= len(commandNames) {
		return nil, fmt.Errorf("unknown command %d", int(c))
	}
	return []byte(commandNames[c]), nil
}

func (c *Command) UnmarshalText(text []byte) error {
	for i, name := range commandNames {
		if name == string(text) {
			*c = Command(i)
			return nil
		}
	}
	return fmt.Errorf("unknown command %q", text)
}

// ParseCommand classifies line. Commands are case-insensitive; anything else
// starting with ':' is CmdUnknown and the rest is treated as a reference.
func ParseCommand(line string) Command {
	s := strings.ToLower(strings.TrimSpace(line))
	if s == "" {
		return CmdEmpty
	}
	if c, ok := commands[s]; ok {
		return c
	}
	if strings.HasPrefix(s, ":") {
		return CmdUnknown
	}
	return CmdReference
}

// State is the reader position after the last successful step.
type State struct {
	last ref.Locator
	ok   bool
}

// At returns a State positioned at loc.
func At(loc ref.Locator) State {
	return State{last: loc, ok: true}
}

// Last returns the current locator, if any passage has been loaded.
func (s State) Last() (ref.Locator, bool) {
	return s.last, s.ok
}

// Kind tells the caller how to present a Reply.
type Kind string

const (
	KindNone    Kind = ""
	KindPassage Kind = "passage"
	KindHelp    Kind = "help"
	KindHint    Kind = "hint"
	KindError   Kind = "error"
	KindQuit    Kind = "quit"
)

// Correction records an interpreted book name.
type Correction struct {
	Canonical string `json:"canonical"`
	Entered   string `json:"entered"`
}

// Notice renders the correction the way the reader announces it.
func (c Correction) Notice() string {
	return fmt.Sprintf("Interpreting book as %s (entered '%s')", c.Canonical, c.Entered)
}

// Reply is the outcome of one Step.
type Reply struct {
	Kind       Kind           `json:"kind"`
	Command    Command        `json:"command"`
	Reference  string         `json:"reference,omitempty"`
	Locator    *ref.Locator   `json:"locator,omitempty"`
	Verses     []corpus.Verse `json:"verses,omitempty"`
	Correction *Correction    `json:"correction,omitempty"`
	Message    string         `json:"message,omitempty"`
	Hint       string         `json:"hint,omitempty"`
	Err        error          `json:"-"`
}

// Stepper applies input lines to States. It holds no per-reader data and
// may be shared.
type Stepper struct {
	acc    corpus.Accessor
	parser *ref.Parser
}

// New returns a Stepper reading from acc. A nil parser uses
// ref.NewParser(acc, nil).
func New(acc corpus.Accessor, parser *ref.Parser) *Stepper {
	if parser == nil {
		parser = ref.NewParser(acc, nil)
	}
	return &Stepper{acc: acc, parser: parser}
}

// Step interprets line against st. The returned State equals st unless a
// passage was loaded.
func (s *Stepper) Step(ctx context.Context, st State, line string) (State, Reply) {
	cmd := ParseCommand(line)
	switch cmd {
	case CmdEmpty:
		return st, Reply{Kind: KindNone, Command: cmd}
	case CmdQuit:
		return st, Reply{Kind: KindQuit, Command: cmd, Message: "Closing."}
	case CmdHelp:
		return st, Reply{Kind: KindHelp, Command: cmd, Message: HelpText}
	case CmdUnknown:
		return st, Reply{Kind: KindHint, Command: cmd, Message: "Unrecognized command. Type :help for guidance."}
	case CmdNext:
		return s.move(st, navigate.Next)
	case CmdPrev:
		return s.move(st, navigate.Prev)
	}
	return s.lookup(ctx, st, line)
}

func (s *Stepper) lookup(ctx context.Context, st State, line string) (State, Reply) {
	res, err := s.parser.Parse(line)
	if err != nil {
		return st, errorReply(CmdReference, err)
	}

	reply, err := s.load(CmdReference, res.Locator)
	if err != nil {
		return st, reply
	}
	if res.Corrected() {
		reply.Correction = &Correction{Canonical: res.Locator.Book, Entered: res.Input}
		logging.Autocorrect(ctx, res.Input, res.Locator.Book, res.Match.String())
	}
	return At(res.Locator), reply
}

func (s *Stepper) move(st State, dir navigate.Direction) (State, Reply) {
	cmd := CmdNext
	if dir == navigate.Prev {
		cmd = CmdPrev
	}

	last, ok := st.Last()
	if !ok {
		return st, errorReply(cmd, noHistory(dir))
	}

	loc, err := navigate.Advance(s.acc, last, dir)
	if err != nil {
		return st, errorReply(cmd, err)
	}

	reply, err := s.load(cmd, loc)
	if err != nil {
		return st, reply
	}
	return At(loc), reply
}

func (s *Stepper) load(cmd Command, loc ref.Locator) (Reply, error) {
	verses, err := ref.Passage(s.acc, loc)
	if err != nil {
		return errorReply(cmd, err), err
	}
	l := loc
	return Reply{
		Kind:      KindPassage,
		Command:   cmd,
		Reference: loc.String(),
		Locator:   &l,
		Verses:    verses,
		Message:   "Loaded passage: " + loc.String(),
	}, nil
}

// noHistoryError keeps the direction for the reader-facing message while
// matching navigate.ErrNoHistory.
type noHistoryError struct{ dir navigate.Direction }

func (e noHistoryError) Error() string { return navigate.ErrNoHistory.Error() }
func (e noHistoryError) Unwrap() error { return navigate.ErrNoHistory }

func noHistory(dir navigate.Direction) error {
	return noHistoryError{dir: dir}
}

func errorReply(cmd Command, err error) Reply {
	msg, hint := Describe(err)
	return Reply{Kind: KindError, Command: cmd, Message: msg, Hint: hint, Err: err}
}

// Describe turns a parse or navigation error into a reader-facing message and
// an optional hint.
func Describe(err error) (msg, hint string) {
	var nh noHistoryError
	if errors.As(err, &nh) {
		if nh.dir == navigate.Prev {
			return "No prior passage stored. Enter a reference before moving back.", ""
		}
		return "No prior passage stored. Enter a reference before moving ahead.", ""
	}

	switch {
	case errors.Is(err, navigate.ErrNoHistory):
		return "No prior passage stored. Enter a reference first.", ""
	case errors.Is(err, navigate.ErrAtEnd):
		return "You have reached the end of the Bible.", ""
	case errors.Is(err, navigate.ErrAtStart):
		return "You are at the beginning of the Bible.", ""
	}

	var pe *ref.ParseError
	if !errors.As(err, &pe) {
		return err.Error(), ""
	}

	switch pe.Kind {
	case ref.UnknownBook:
		if pe.Entered != "" {
			return fmt.Sprintf("Unable to locate the book '%s'.", pe.Entered), ReferenceHint
		}
		return "Reference not recognized. Check your input and try again.", ReferenceHint
	case ref.InvalidRange:
		return "Verse range invalid. The first verse must not follow the last.", ""
	case ref.OutOfRange:
		switch {
		case pe.Max == 0:
			return fmt.Sprintf("Unable to locate the book '%s'.", pe.Book), ""
		case pe.Value < 1 && pe.Bound == ref.BoundChapter:
			return "Chapters begin at 1.", ""
		case pe.Value < 1:
			return "Verses begin at 1.", ""
		case pe.Bound == ref.BoundChapter:
			return fmt.Sprintf("%s contains only %d chapters.", pe.Book, pe.Max), ""
		default:
			return fmt.Sprintf("%s %d contains only %d verses.", pe.Book, pe.Chapter, pe.Max), ""
		}
	}
	return "Reference not recognized. Check your input and try again.", ReferenceHint
}
