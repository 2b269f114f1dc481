// Package cui holds the interactive prompts and terminal output of the livechat command.
package cui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Dyastin-0/livechat/core"
	"github.com/Dyastin-0/livechat/styles"
	"github.com/Dyastin-0/livechat/tofu"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

var ErrNothingSelected = errors.New("no peers selected")

const trustPromptTimeout = 30 * time.Second

// ConfirmPeer asks whether to trust a peer seen for the first time. No answer within the
// prompt timeout counts as no.
func ConfirmPeer(id string, fingerprint []byte) bool {
	ok, err := Confirm(fmt.Sprintf("trust %s (%s)?", id, tofu.FormatFingerprint(fingerprint)), trustPromptTimeout)
	return err == nil && ok
}

func Confirm(title string, timeout time.Duration) (bool, error) {
	var confirm bool

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Affirmative("yes").
				Negative("no").
				Title(title).
				Value(&confirm),
		),
	)
	if timeout > 0 {
		form = form.WithTimeout(timeout)
	}

	if err := form.Run(); err != nil {
		return false, err
	}

	return confirm, nil
}

// SelectTargets lets the user pick from targets. states, if known, labels each option.
func SelectTargets(targets []core.PeerTarget, states map[string]bool) ([]core.PeerTarget, error) {
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: no known peers", ErrNothingSelected)
	}

	byKey := make(map[string]core.PeerTarget, len(targets))
	options := make([]huh.Option[string], 0, len(targets))

	for _, t := range targets {
		key := t.String()
		byKey[key] = t
		options = append(options, huh.NewOption(targetLabel(t, states), key))
	}

	var selected []string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("send to").
				Options(options...).
				Value(&selected),
		),
	)

	if err := form.Run(); err != nil {
		return nil, err
	}

	if len(selected) == 0 {
		return nil, ErrNothingSelected
	}

	picked := make([]core.PeerTarget, 0, len(selected))
	for _, key := range selected {
		picked = append(picked, byKey[key])
	}

	return picked, nil
}

func targetLabel(t core.PeerTarget, states map[string]bool) string {
	connected, known := states[t.String()]
	if !known {
		return t.String()
	}
	return fmt.Sprintf("%-24s %s", t.String(), styles.Reachability(connected))
}

// Probe checks every target behind a spinner.
func Probe(ctx context.Context, m *core.Monitor, targets []core.PeerTarget) ([]core.ConnectionStateChanged, error) {
	var changes []core.ConnectionStateChanged

	err := spinner.New().
		Title(styles.INFO.Render(fmt.Sprintf("probing %d peers...", len(targets)))).
		Context(ctx).
		Action(func() {
			changes = m.CheckConnections(ctx, targets)
		}).
		Run()

	return changes, err
}

// PrintStates writes one row per target.
func PrintStates(w io.Writer, changes []core.ConnectionStateChanged) {
	for _, c := range changes {
		row := lipgloss.JoinHorizontal(lipgloss.Top,
			styles.CELL.Width(26).Render(c.Target.String()),
			styles.Reachability(c.Connected),
		)
		fmt.Fprintln(w, row)
	}
}

// PrintEvent reports a reachability change as it happens.
func PrintEvent(w io.Writer, ev core.ConnectionStateChanged) {
	fmt.Fprintf(w, "%s %s %s\n",
		styles.INFO.Render(ev.At.Format(time.TimeOnly)),
		ev.Target.String(),
		styles.Reachability(ev.Connected),
	)
}

// PrintResults summarizes a send.
func PrintResults(w io.Writer, name string, results core.Results) {
	for _, r := range results {
		if r.OK() {
			fmt.Fprintln(w, styles.SUCCESS.Render(fmt.Sprintf("sent %s to %s (%s in %s)",
				name, r.Target, humanize.Bytes(uint64(r.Bytes)), r.Duration.Round(time.Millisecond))))
			continue
		}
		fmt.Fprintln(w, styles.ERROR.Render(fmt.Sprintf("failed to send %s to %s: %v", name, r.Target, r.Err)))
	}

	ok := len(results.Succeeded())
	summary := fmt.Sprintf("%d of %d peers received %s", ok, len(results), name)
	if ok == len(results) {
		fmt.Fprintln(w, styles.TITLE.Render(summary))
	} else {
		fmt.Fprintln(w, styles.WARNING.Render(summary))
	}
}

// PrintSwept lists files removed by a sweep.
func PrintSwept(w io.Writer, removed []string) {
	if len(removed) == 0 {
		fmt.Fprintln(w, styles.INFO.Render("nothing to clean up"))
		return
	}
	fmt.Fprintln(w, styles.SUCCESS.Render(fmt.Sprintf("removed %s: %s",
		humanize.Comma(int64(len(removed)))+" files", strings.Join(removed, ", "))))
}

// PrintStats writes a one-line transfer summary.
func PrintStats(w io.Writer, s core.StatsSnapshot) {
	fmt.Fprintln(w, styles.INFO.Render(fmt.Sprintf("received %d (%s), rejected %d, sent %d (%s), failed %d, up %s",
		s.Received, humanize.Bytes(uint64(s.BytesIn)), s.Rejected,
		s.Sent, humanize.Bytes(uint64(s.BytesOut)), s.Failed,
		s.Uptime.Round(time.Second))))
}
