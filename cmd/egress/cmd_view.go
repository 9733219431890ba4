package main

import (
	"fmt"
	"os"
	"sort"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"egress/internal/config"
	"egress/internal/manifest"
)

var viewCmd = &cobra.Command{
	Use:   "view <manifest>",
	Short: "Show a run manifest's routes in a terminal dashboard",
	Long:  "Render a previously written run manifest (see egress analyze) as a scrollable terminal table of per-space distances and violations (config.TUI controls theme and viewport size).",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.TUI.Enabled {
			return fmt.Errorf("tui is disabled by config (tui.enabled)")
		}

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open manifest: %w", err)
		}
		m, err := manifest.Decode(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("decode manifest: %w", err)
		}

		p := tea.NewProgram(newViewModel(m, cfg.TUI), tea.WithAltScreen())
		_, err = p.Run()
		return err
	},
}

type viewModel struct {
	m        manifest.Manifest
	cursor   int
	viewport int
	theme    theme
}

type theme struct {
	header    lipgloss.Style
	row       lipgloss.Style
	selected  lipgloss.Style
	violation lipgloss.Style
	ok        lipgloss.Style
}

func newTheme(name string) theme {
	accent := lipgloss.Color("12")
	warn := lipgloss.Color("9")
	good := lipgloss.Color("10")
	if name == "light" {
		accent = lipgloss.Color("4")
	}
	return theme{
		header:    lipgloss.NewStyle().Bold(true).Foreground(accent),
		row:       lipgloss.NewStyle(),
		selected:  lipgloss.NewStyle().Bold(true).Reverse(true),
		violation: lipgloss.NewStyle().Foreground(warn),
		ok:        lipgloss.NewStyle().Foreground(good),
	}
}

func newViewModel(m manifest.Manifest, tuiCfg config.TUIConfig) viewModel {
	viewport := tuiCfg.ViewportSize
	if viewport <= 0 {
		viewport = 20
	}
	return viewModel{m: m, viewport: viewport, theme: newTheme(tuiCfg.Theme)}
}

func (v viewModel) Init() tea.Cmd { return nil }

func (v viewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return v, tea.Quit
		case "up", "k":
			if v.cursor > 0 {
				v.cursor--
			}
		case "down", "j":
			if v.cursor < len(v.m.Spaces)-1 {
				v.cursor++
			}
		}
	}
	return v, nil
}

func (v viewModel) View() string {
	spaces := append([]manifest.SpaceSummary{}, v.m.Spaces...)
	sort.Slice(spaces, func(i, j int) bool { return spaces[i].Distance > spaces[j].Distance })

	out := v.theme.header.Render(fmt.Sprintf("run %s  source %s  %d floor(s)", v.m.RunID, v.m.SourceFile, v.m.Floors)) + "\n\n"
	out += v.theme.header.Render(fmt.Sprintf("%-24s %6s %8s %10s %s", "space", "floor", "distance", "to-stair", "status")) + "\n"

	for i, s := range spaces {
		status := v.theme.ok.Render("ok")
		if len(s.Violations) > 0 {
			status = v.theme.violation.Render(fmt.Sprintf("%d violation(s)", len(s.Violations)))
		}
		line := fmt.Sprintf("%-24s %6d %7.1fm %9.1fm  %s", s.SpaceName, s.Floor, s.Distance, s.DistanceToStair, status)
		if i == v.cursor {
			line = v.theme.selected.Render(line)
		}
		out += line + "\n"
	}
	out += "\n(↑/↓ to move, q to quit)\n"
	return out
}
