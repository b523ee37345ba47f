package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/manishrjain/keys"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const descLength = 60

// terminal answers prompts one keystroke at a time. Suggested codes get
// throwaway shortcuts; the full vocabulary uses the persisted ones.
type terminal struct {
	in    *bufio.Reader
	out   io.Writer
	short *keys.Shortcuts

	// Switch the tty between single character and line mode. Nil in tests.
	raw    func()
	cooked func()
	clear  func()
}

func newTerminal(in io.Reader, out io.Writer, short *keys.Shortcuts) *terminal {
	if short == nil {
		short = &keys.Shortcuts{}
	}
	setDefaultMappings(short)
	return &terminal{in: bufio.NewReader(in), out: out, short: short}
}

func setDefaultMappings(ks *keys.Shortcuts) {
	ks.BestEffortAssign('s', ".skip", "default")
	ks.BestEffortAssign('a', ".skip all", "default")
	ks.BestEffortAssign('q', ".quit", "default")
	ks.BestEffortAssign('n', ".new", "default")
	ks.BestEffortAssign('c', ".clear", "default")
	ks.BestEffortAssign('l', ".show all", "default")
}

// stty changes settings of the controlling terminal. Failures are logged.
func stty(log *zerolog.Logger, settings ...string) {
	args := append([]string{"-F", "/dev/tty"}, settings...)
	if out, err := exec.Command("stty", args...).CombinedOutput(); err != nil {
		log.Debug().Err(err).Strs("settings", settings).Str("output", strings.TrimSpace(string(out))).Msg("stty failed")
	}
}

// ttyModes returns the hooks a terminal uses to switch between keystroke
// and line input, and to clear the screen before each prompt.
func ttyModes(log *zerolog.Logger, out io.Writer) (raw, cooked, clear func()) {
	raw = func() { stty(log, "cbreak", "min", "1", "-echo") }
	cooked = func() { stty(log, "sane") }
	clear = func() {
		cmd := exec.Command("clear")
		cmd.Stdout = out
		if err := cmd.Run(); err != nil {
			log.Debug().Err(err).Msg("clear failed")
		}
		fmt.Fprintln(out)
	}
	return raw, cooked, clear
}

func call(f func()) {
	if f != nil {
		f()
	}
}

func (t *terminal) printPrompt(p Prompt) {
	call(t.clear)
	desc := p.Summary
	if r := []rune(desc); len(r) > descLength {
		desc = string(r[:descLength])
	}
	color.New(color.BgBlue, color.FgWhite).Fprintf(t.out, " [ROW %4d] ", p.Row)
	color.New(color.BgWhite, color.FgBlack).Fprintf(t.out, " %-60s ", desc)
	fmt.Fprintln(t.out)
	if len(p.Suggested) > 0 {
		color.New(color.BgGreen, color.FgBlack).Fprintf(t.out, " Suggested: %s ", strings.Join(p.Suggested, ", "))
		fmt.Fprintln(t.out)
	}
	fmt.Fprintf(t.out, "%d known codes. [Enter] submit the selection.\n\n", len(p.Known))
}

func (t *terminal) printSelected(selected []string) {
	if len(selected) == 0 {
		return
	}
	color.New(color.BgWhite, color.FgBlack).Fprintf(t.out, "Selected [%s]", strings.Join(selected, " "))
	fmt.Fprintln(t.out)
}

func (t *terminal) readLine(prompt string) (string, error) {
	call(t.cooked)
	defer call(t.raw)
	fmt.Fprint(t.out, prompt)
	line, err := t.in.ReadString('\n')
	if err != nil && !(err == io.EOF && len(line) > 0) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// toggle adds code to the selection, or removes it if already selected.
func toggle(selected []string, code string) []string {
	for i, c := range selected {
		if c == code {
			return append(selected[:i:i], selected[i+1:]...)
		}
	}
	return append(selected, code)
}

func (t *terminal) Prompt(ctx context.Context, p Prompt) (Response, error) {
	t.printPrompt(p)

	for _, code := range p.Known {
		t.short.AutoAssign(code, "default")
	}
	ks := t.short
	if len(p.Suggested) > 0 {
		ks = &keys.Shortcuts{}
		setDefaultMappings(ks)
		for _, code := range p.Suggested {
			ks.AutoAssign(code, "default")
		}
	}

	var selected []string
	for {
		if err := ctx.Err(); err != nil {
			return Response{}, err
		}
		t.printSelected(selected)
		ks.Print("default", false)

		ch, err := t.in.ReadByte()
		if err != nil {
			return Response{}, errors.Wrap(err, "unable to read input")
		}
		if ch == '\n' || ch == '\r' {
			return Submit(selected...), nil
		}
		opt, has := ks.MapsTo(rune(ch), "default")
		if !has {
			continue
		}
		switch opt {
		case ".skip":
			return Skip(), nil
		case ".skip all":
			return SkipAll(), nil
		case ".quit":
			return Abort(), nil
		case ".clear":
			selected = nil
		case ".show all":
			ks = t.short
		case ".new":
			line, err := t.readLine("New code(s): ")
			if err != nil {
				return Response{}, errors.Wrap(err, "unable to read new code")
			}
			for _, code := range strings.Fields(line) {
				if !slices.Contains(selected, code) {
					selected = append(selected, code)
				}
			}
		default:
			selected = toggle(selected, opt)
		}
	}
}
