// Package tui provides the interactive wait screen shown while a top-up
// completes in the external checkout.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pesawallet/pesa/internal/cli"
	"github.com/pesawallet/pesa/internal/model"
)

// Verifier resolves a top-up reference against the backend.
type Verifier interface {
	Verify(ctx context.Context, reference string) (model.VerificationResult, error)
	Abandon(ctx context.Context, reference string) error
}

// AwaitConfig configures the wait screen.
type AwaitConfig struct {
	Verifier    Verifier
	Callbacks   <-chan string // references delivered by the local callback listener
	Reference   string
	CheckoutURL string
}

// AwaitResult is what the wait screen resolved to.
type AwaitResult struct {
	Err       error
	Result    model.VerificationResult
	Abandoned bool
}

type awaitState int

const (
	stateWaiting awaitState = iota
	stateVerifying
	stateDone
)

type callbackMsg struct {
	reference string
}

type verifyDoneMsg struct {
	err    error
	result model.VerificationResult
}

type abandonedMsg struct{}

// awaitModel drives the wait screen.
type awaitModel struct {
	ctx      context.Context
	verifier Verifier
	err      error
	cfg      AwaitConfig
	result   model.VerificationResult
	spinner  spinner.Model
	state    awaitState
	abandon  bool
}

func newAwaitModel(ctx context.Context, cfg AwaitConfig) awaitModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(cli.PrimaryColor)

	return awaitModel{
		ctx:      ctx,
		cfg:      cfg,
		verifier: cfg.Verifier,
		spinner:  sp,
		state:    stateWaiting,
	}
}

// Init starts the spinner and the callback watcher.
func (m awaitModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForCallback())
}

func (m awaitModel) waitForCallback() tea.Cmd {
	return func() tea.Msg {
		select {
		case ref, ok := <-m.cfg.Callbacks:
			if !ok {
				return nil
			}
			return callbackMsg{reference: ref}
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m awaitModel) verifyCmd(reference string) tea.Cmd {
	return func() tea.Msg {
		result, err := m.verifier.Verify(m.ctx, reference)
		return verifyDoneMsg{result: result, err: err}
	}
}

func (m awaitModel) abandonCmd() tea.Cmd {
	return func() tea.Msg {
		_ = m.verifier.Abandon(m.ctx, m.cfg.Reference)
		return abandonedMsg{}
	}
}

// Update handles messages.
func (m awaitModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.state == stateDone {
			return m, tea.Quit
		}
		switch msg.String() {
		case "v", "enter":
			if m.state == stateWaiting {
				m.state = stateVerifying
				return m, m.verifyCmd(m.cfg.Reference)
			}
		case "a", "q", "ctrl+c", "esc":
			if m.state == stateWaiting {
				m.abandon = true
				return m, m.abandonCmd()
			}
		}
		return m, nil

	case callbackMsg:
		// The browser came back; verify whichever reference it carried.
		if m.state == stateWaiting {
			m.state = stateVerifying
			return m, m.verifyCmd(msg.reference)
		}
		return m, nil

	case verifyDoneMsg:
		m.state = stateDone
		m.result = msg.result
		m.err = msg.err
		return m, tea.Quit

	case abandonedMsg:
		m.state = stateDone
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the wait screen.
func (m awaitModel) View() string {
	var b strings.Builder

	switch m.state {
	case stateWaiting:
		b.WriteString(cli.TitleStyle.Render("Complete your top-up"))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%s Waiting for checkout to finish...\n\n", m.spinner.View()))
		b.WriteString(cli.SubtleStyle.Render("Reference: " + m.cfg.Reference))
		b.WriteString("\n")
		if m.cfg.CheckoutURL != "" {
			b.WriteString(cli.SubtleStyle.Render("Checkout:  " + m.cfg.CheckoutURL))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(cli.SubtleStyle.Render("v verify now • a abandon • q quit"))
	case stateVerifying:
		b.WriteString(fmt.Sprintf("%s Verifying payment...", m.spinner.View()))
	case stateDone:
		switch {
		case m.abandon:
			b.WriteString(cli.FormatWarning("Top-up abandoned. The reference stays pending until resolved."))
		case m.err != nil:
			b.WriteString(cli.FormatError("Verification did not complete: " + m.err.Error()))
		case m.result.Outcome.Settled():
			b.WriteString(cli.FormatSuccess("Top-up verified: " + cli.FormatAmount(m.result.Amount)))
		default:
			b.WriteString(cli.FormatError("Payment was not successful."))
		}
	}
	b.WriteString("\n")
	return b.String()
}

// Await runs the wait screen until the top-up resolves, is abandoned, or
// the context is canceled.
func Await(ctx context.Context, cfg AwaitConfig) (AwaitResult, error) {
	program := tea.NewProgram(newAwaitModel(ctx, cfg), tea.WithContext(ctx))
	final, err := program.Run()
	if err != nil {
		return AwaitResult{}, fmt.Errorf("wait screen failed: %w", err)
	}

	m, ok := final.(awaitModel)
	if !ok {
		return AwaitResult{}, fmt.Errorf("unexpected final model type %T", final)
	}
	return AwaitResult{
		Result:    m.result,
		Err:       m.err,
		Abandoned: m.abandon,
	}, nil
}
