package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-musicbox/hal"
	"go-musicbox/midi"
	"go-musicbox/sequencer"
	"go-musicbox/theme"
	"go-musicbox/widgets"
)

// Board is the panel's view of the hardware: it posts button edges and
// reads back the status bank
type Board interface {
	hal.EdgePoster
	Register(bank hal.Bank) uint16
}

type Model struct {
	Controller *sequencer.Controller
	Board      Board
	DeviceMgr  *midi.DeviceManager // may be nil
	Theme      *theme.Theme
	quitting   bool
	message    string
	controller midi.Controller // current MIDI panel (may be nil)
}

type UpdateMsg struct{}

type DeviceEventMsg midi.DeviceEvent

// keyButtons maps keyboard keys to panel buttons
var keyButtons = map[string]hal.Button{
	"s":     hal.SongSelect,
	"m":     hal.ModeSelect,
	" ":     hal.StartPause,
	"space": hal.StartPause,
	"x":     hal.Stop,
}

var help = []widgets.KeySection{{
	Keys: []widgets.KeyBinding{
		{Key: "s", Desc: "song select"},
		{Key: "m", Desc: "mode select"},
		{Key: "space", Desc: "start / pause"},
		{Key: "x", Desc: "stop"},
		{Key: "1-4", Desc: "jump to song (HOME only)"},
		{Key: "q", Desc: "quit"},
	},
}}

func NewModel(ctrl *sequencer.Controller, board Board, deviceMgr *midi.DeviceManager, th *theme.Theme) Model {
	return Model{
		Controller: ctrl,
		Board:      board,
		DeviceMgr:  deviceMgr,
		Theme:      th,
	}
}

func ListenForUpdates(ctrl *sequencer.Controller) tea.Cmd {
	return func() tea.Msg {
		<-ctrl.Updates()
		return UpdateMsg{}
	}
}

func ListenForDevices(deviceMgr *midi.DeviceManager) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-deviceMgr.Events()
		if !ok {
			return nil
		}
		return DeviceEventMsg(event)
	}
}

func (m Model) Init() tea.Cmd {
	if m.DeviceMgr == nil {
		return ListenForUpdates(m.Controller)
	}
	return tea.Batch(
		ListenForUpdates(m.Controller),
		ListenForDevices(m.DeviceMgr),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "1", "2", "3", "4":
			idx := int(key[0] - '1')
			if err := m.Controller.SelectSong(idx); err != nil {
				m.message = err.Error()
			} else {
				m.message = ""
			}

		default:
			if b, ok := keyButtons[key]; ok {
				m.message = ""
				if !m.Board.PostButtonEdge(b) {
					m.message = "button queue full"
				}
			}
		}

	case UpdateMsg:
		if m.controller != nil {
			m.controller.ShowKeys(uint32(m.Controller.Snapshot().Keys))
		}
		return m, ListenForUpdates(m.Controller)

	case DeviceEventMsg:
		event := midi.DeviceEvent(msg)
		if event.Type == midi.DeviceConnected {
			m.controller = event.Controller
			m.controller.ShowKeys(uint32(m.Controller.Snapshot().Keys))

			// Presses on the controller become panel buttons
			go midi.ForwardButtons(event.Controller, m.Board)
		} else if event.Type == midi.DeviceDisconnected {
			if m.controller != nil && m.controller.ID() == event.ID {
				m.controller = nil
			}
		}
		return m, ListenForDevices(m.DeviceMgr)
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	st := m.Controller.Snapshot()

	// Styles
	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	stateStyle := lipgloss.NewStyle().Bold(true)
	switch st.State {
	case sequencer.Play:
		stateStyle = stateStyle.Foreground(m.Theme.Success())
	case sequencer.Pause:
		stateStyle = stateStyle.Foreground(m.Theme.Warning())
	default:
		stateStyle = stateStyle.Foreground(m.Theme.FG())
	}

	deviceStatus := ""
	if m.controller != nil {
		deviceStatus = "  " + m.controller.Type().String()
	}

	header := headerStyle.Render("go-musicbox  ") +
		stateStyle.Render(fmt.Sprintf("%-5s", st.State)) +
		headerStyle.Render(fmt.Sprintf("  song %d/%d %-10s mode %d%s", st.SongID+1, m.Controller.NumSongs(), st.Song, st.Mode, deviceStatus))

	progress := dimStyle.Render(fmt.Sprintf("beat %d  line %d  keys %v", st.Beat, st.Cursor, st.Keys))

	keys := widgets.RenderKeys(m.Theme, uint32(st.Keys), sequencer.NumKeys, 'B')
	leds := dimStyle.Render("A ") + widgets.RenderLEDs(m.Theme, m.Board.Register(hal.BankA), hal.BankWidth)

	// Build output
	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n")
	out.WriteString(progress)
	out.WriteString("\n\n")
	out.WriteString(keys)
	out.WriteString("\n\n")
	out.WriteString(leds)
	out.WriteString("\n\n")
	out.WriteString(dimStyle.Render(widgets.RenderKeyHelp(help)))

	if m.message != "" {
		out.WriteString("\n")
		out.WriteString(lipgloss.NewStyle().Foreground(m.Theme.Active()).Render(m.message))
	}

	return out.String()
}
