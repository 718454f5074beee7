package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Oxbian/NAI/pkg/conversation"
	"github.com/Oxbian/NAI/pkg/router"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

const (
	commandResume = "/resume"
	commandQuit   = "/quit"
)

type frontEnd struct {
	out      io.Writer
	renderer *glamour.TermRenderer

	you    lipgloss.Style
	nai    lipgloss.Style
	status lipgloss.Style
}

func newFrontEnd(out io.Writer) *frontEnd {
	// plain text is still readable when no renderer is available
	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	return &frontEnd{
		out:      out,
		renderer: renderer,
		you:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		nai:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		status:   lipgloss.NewStyle().Faint(true).Italic(true),
	}
}

func (f *frontEnd) showState(s router.State) {
	if s == router.StateIdle {
		return
	}
	fmt.Fprintln(f.out, f.status.Render(s.String()+"..."))
}

func (f *frontEnd) showMessage(m conversation.Message) {
	switch m.Role {
	case conversation.RoleUser:
		fmt.Fprintln(f.out, f.you.Render("You:"), m.Content)
	case conversation.RoleAssistant:
		fmt.Fprintln(f.out, f.nai.Render("NAI:"))
		fmt.Fprintln(f.out, f.render(m.Content))
	default:
		fmt.Fprintln(f.out, m)
	}
}

func (f *frontEnd) render(markdown string) string {
	if f.renderer == nil {
		return markdown
	}
	out, err := f.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimRight(out, "\n")
}

// turn runs one input to completion. SIGINT cancels the turn, not the program.
func (f *frontEnd) turn(o *router.Orchestrator, input string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	if strings.TrimSpace(input) == commandResume {
		err = o.Summarize(ctx)
	} else {
		err = o.Submit(ctx, input)
	}
	if err != nil {
		return err
	}

	history := o.History()
	f.showMessage(history[len(history)-1])
	return nil
}

func (f *frontEnd) once(o *router.Orchestrator, message string, save func() error) error {
	if err := f.turn(o, message); err != nil {
		return err
	}
	return save()
}

func (f *frontEnd) loop(o *router.Orchestrator, save func() error) error {
	t := term.NewTerminal(os.Stdin, f.you.Render("You")+"> ")
	f.out = t

	for _, m := range o.History() {
		f.showMessage(m)
	}

	for {
		prompt, err := readLine(t)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if strings.TrimSpace(prompt) == commandQuit {
			return nil
		}

		err = f.turn(o, prompt)
		if errors.Is(err, router.ErrEmptyInput) {
			continue
		}
		if err != nil {
			fmt.Fprintln(t, "Error:", err)
			continue
		}

		if err = save(); err != nil {
			return err
		}
	}
}

// readLine reads one line in raw mode and restores the terminal before
// returning, so Ctrl-C during a turn reaches the signal handler.
func readLine(t *term.Terminal) (string, error) {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return "", err
	}

	width, height, err := term.GetSize(fd)
	if err != nil {
		term.Restore(fd, oldState)
		return "", err
	}
	t.SetSize(width, height)

	line, err := t.ReadLine()
	if restoreErr := term.Restore(fd, oldState); restoreErr != nil && err == nil {
		err = restoreErr
	}
	return line, err
}
