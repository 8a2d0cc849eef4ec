// Package render prints simulation status and transitions as terminal tables.
//
// It is shared by the stretchsim CLI and the headless run mode of
// stretchsim-server.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"

	"github.com/yaroslav/stretchsim/models"
)

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	if title != "" {
		t.SetTitle(title)
	}
	return t
}

// Transitions prints one row per transition. Consecutive rows from the same
// tick show the tick once and ticks are separated by a rule.
func Transitions(w io.Writer, transitions []models.Transition) {
	if len(transitions) == 0 {
		fmt.Fprintln(w, "no transitions")
		return
	}

	t := newTable(w, "")
	t.AppendHeader(table.Row{"Tick", "Kind", "Subject", "From", "To", "Detail"})

	var last uint64
	for i, tr := range transitions {
		tick := ""
		if i == 0 || tr.Tick != last {
			if i > 0 {
				t.AppendSeparator()
			}
			tick = fmt.Sprint(tr.Tick)
			last = tr.Tick
		}
		t.AppendRow(table.Row{tick, tr.Kind, tr.Subject, lo.Ternary(tr.From == "", "-", tr.From), tr.To, tr.Detail})
	}
	t.Render()
}

// Pods prints each pod member on its own row.
func Pods(w io.Writer, pods []models.PodStatus) {
	t := newTable(w, "Pods")
	t.AppendHeader(table.Row{"Pod", "State", "Epoch", "Array", "Member State", "Writable", "Peer", "Mediator", "Election"})

	for i, p := range pods {
		if i > 0 {
			t.AppendSeparator()
		}
		name := p.Name
		if p.FailoverPreference != "" {
			name += " (prefers " + p.FailoverPreference + ")"
		}
		for j, m := range p.Arrays {
			row := table.Row{"", "", "", m.Array, m.State, yesNo(m.Writable), upDown(m.PeerConnected), upDown(m.MediatorConnected), election(m)}
			if j == 0 {
				row[0], row[1], row[2] = name, p.State, p.Epoch
			}
			t.AppendRow(row)
		}
	}
	t.Render()
}

// Arrays prints arrays with their controllers.
func Arrays(w io.Writer, arrays []models.ArrayStatus) {
	t := newTable(w, "Arrays")
	t.AppendHeader(table.Row{"Array", "Online", "Controllers", "Pods", "Hosts"})

	for _, a := range arrays {
		controllers := lo.Map(a.Controllers, func(c models.ControllerStatus, _ int) string {
			return fmt.Sprintf("%s=%s", strings.TrimPrefix(c.Name, a.Name+"-"), c.State)
		})
		hosts := lo.Map(a.HostEntries, func(h models.HostEntryStatus, _ int) string { return h.Host })
		t.AppendRow(table.Row{a.Name, yesNo(a.Online), strings.Join(controllers, " "), strings.Join(a.Pods, ","), strings.Join(hosts, ",")})
	}
	t.Render()
}

// Hosts prints host I/O counters.
func Hosts(w io.Writer, hosts []models.HostStatus) {
	t := newTable(w, "Hosts")
	t.AppendHeader(table.Row{"Host", "Online", "Volume", "Ready Paths", "Reads Acked/Sent", "Writes Sent", "Writes Acked", "Last Write Latency"})

	for _, h := range hosts {
		t.AppendRow(table.Row{h.Name, yesNo(h.Online), h.Volume, len(h.ReadyPaths), fmt.Sprintf("%d/%d", h.ReadsAcked, h.ReadsSent), h.WritesSent, h.WritesAcked, fmt.Sprintf("%.2f", h.LastWriteLatency)})
	}
	t.Render()
}

// Links prints connections; only WAN links unless all is set.
func Links(w io.Writer, conns []models.ConnectionStatus, all bool) {
	t := newTable(w, "Links")
	t.AppendHeader(table.Row{"Connection", "Online", "Latency", "Bandwidth", "WAN"})

	for _, c := range conns {
		if !all && !c.WAN {
			continue
		}
		t.AppendRow(table.Row{c.Name, yesNo(c.Online), c.Latency, c.Bandwidth, yesNo(c.WAN)})
	}
	t.Render()
}

// Snapshot prints the tick followed by arrays, pods, hosts and WAN links.
func Snapshot(w io.Writer, snap models.Snapshot) {
	fmt.Fprintf(w, "Tick %d\n", snap.Tick)
	Arrays(w, snap.Arrays)
	Pods(w, snap.Pods)
	Hosts(w, snap.Hosts)
	Links(w, snap.Connections, false)
}

func yesNo(b bool) string { return lo.Ternary(b, "yes", "no") }

func upDown(b bool) string { return lo.Ternary(b, "up", "down") }

func election(m models.PodArrayStatus) string {
	switch {
	case m.Elected:
		return "elected"
	case m.PreElected:
		return "pre-elected"
	}
	return "-"
}
