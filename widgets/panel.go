package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"go-musicbox/theme"
)

// KeysPerRow is the number of keys drawn on one line (one output bank)
const KeysPerRow = 16

// RenderKeys draws the key mask as rows of KeysPerRow, labelled with the
// bank letter starting at firstBank
func RenderKeys(th *theme.Theme, active uint32, numKeys int, firstBank byte) string {
	dim := lipgloss.NewStyle().Foreground(th.Muted())
	var lines []string
	for start := 0; start < numKeys; start += KeysPerRow {
		var line strings.Builder
		line.WriteString(dim.Render(fmt.Sprintf("%c ", firstBank+byte(start/KeysPerRow))))
		for key := start; key < start+KeysPerRow && key < numKeys; key++ {
			if key > start {
				line.WriteString(" ")
			}
			if active&(1<<key) != 0 {
				on := lipgloss.NewStyle().Foreground(th.KeyColor(key, numKeys))
				line.WriteString(on.Render(string(th.Symbols.KeyOn)))
			} else {
				line.WriteString(dim.Render(string(th.Symbols.KeyOff)))
			}
		}
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}

// RenderLEDs draws the low width bits of reg, most significant first
func RenderLEDs(th *theme.Theme, reg uint16, width int) string {
	on := lipgloss.NewStyle().Foreground(th.Success())
	off := lipgloss.NewStyle().Foreground(th.Muted())
	var out strings.Builder
	for bit := width - 1; bit >= 0; bit-- {
		if reg&(1<<bit) != 0 {
			out.WriteString(on.Render(string(th.Symbols.LEDOn)))
		} else {
			out.WriteString(off.Render(string(th.Symbols.LEDOff)))
		}
	}
	return out.String()
}

// RenderKeyHelp formats key bindings in a friendly way
func RenderKeyHelp(sections []KeySection) string {
	var lines []string
	for _, sec := range sections {
		if sec.Title != "" {
			lines = append(lines, sec.Title)
		}
		for _, k := range sec.Keys {
			lines = append(lines, fmt.Sprintf("  %-12s %s", k.Key, k.Desc))
		}
	}
	return strings.Join(lines, "\n")
}

// KeySection groups related key bindings
type KeySection struct {
	Title string
	Keys  []KeyBinding
}

// KeyBinding is a single key and its description
type KeyBinding struct {
	Key  string
	Desc string
}
