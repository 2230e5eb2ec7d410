package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"i4.energy/across/avrctl/dialect"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99"))

	keyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(10)

	onStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("40")).
		Bold(true)

	offStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// statusOrder puts the well known fields first.
var statusOrder = []string{"power", "source", "volume", "mute", "decoder", "effect"}

func renderStatus(m dialect.Model, zone int, status dialect.Status) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s zone %d", m.Title, zone)))
	b.WriteString("\n")

	if status == nil {
		b.WriteString(dimStyle.Render("no status reported"))
		return b.String()
	}

	keys := status.Keys()
	slices.SortStableFunc(keys, func(x, y string) int {
		return rank(x) - rank(y)
	})

	for _, key := range keys {
		if key == "zone" {
			continue
		}
		b.WriteString(keyStyle.Render(key))
		b.WriteString(renderValue(m, key, status[key]))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func rank(key string) int {
	if i := slices.Index(statusOrder, key); i >= 0 {
		return i
	}
	return len(statusOrder)
}

func renderValue(m dialect.Model, key string, value any) string {
	switch v := value.(type) {
	case bool:
		if v {
			return onStyle.Render("on")
		}
		return offStyle.Render("off")
	case string:
		if key == "source" {
			return fmt.Sprintf("%s %s", m.SourceLabel(v), dimStyle.Render("("+v+")"))
		}
		return v
	default:
		return fmt.Sprint(v)
	}
}

func renderReply(command string, status dialect.Status) string {
	if status == nil {
		return dimStyle.Render(command + ": no recognized reply")
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(command))
	for _, key := range status.Keys() {
		b.WriteString("\n")
		b.WriteString(keyStyle.Render(key))
		b.WriteString(fmt.Sprint(status[key]))
	}
	return b.String()
}

func renderModels(models []dialect.Model) string {
	var b strings.Builder
	for i, m := range models {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(titleStyle.Render(m.Name))
		b.WriteString("  ")
		b.WriteString(m.Title)
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(fmt.Sprintf("  %s, protocol %s, %d baud, zones %v",
			m.Manufacturer, m.Protocol, m.Serial.BaudRate, m.Zones)))
	}
	return b.String()
}
