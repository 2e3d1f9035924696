package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
	"github.com/urfave/cli/v2"

	"github.com/pulsebeam-relay/signaling-relay/internal/stats"
)

func monitorCmd() *cli.Command {
	return &cli.Command{
		Name:  "monitor",
		Usage: "Live dashboard of the mailbox fabric's group/peer occupancy",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: "http://localhost:3001", Usage: "Relay HTTP base address"},
			&cli.DurationFlag{Name: "interval", Value: 2 * time.Second, Usage: "Poll interval"},
		},
		Action: func(c *cli.Context) error {
			return runMonitor(c.String("addr"), c.Duration("interval"))
		},
	}
}

func runMonitor(addr string, interval time.Duration) error {
	if err := ui.Init(); err != nil {
		return fmt.Errorf("monitor: init terminal: %w", err)
	}
	defer ui.Close()

	summary := widgets.NewParagraph()
	summary.Title = "Signaling Relay"
	summary.SetRect(0, 0, 60, 4)

	list := widgets.NewList()
	list.Title = "Groups"
	list.SetRect(0, 4, 60, 30)

	client := &http.Client{Timeout: 3 * time.Second}

	render := func() {
		snap, err := fetchSnapshot(client, addr)
		if err != nil {
			summary.Text = fmt.Sprintf("fetch error: %v", err)
			ui.Render(summary, list)
			return
		}
		summary.Text = fmt.Sprintf("groups: %d", snap.GroupCount)
		rows := make([]string, 0, len(snap.Groups))
		for _, g := range snap.Groups {
			rows = append(rows, fmt.Sprintf("%s  (%d conns)", g.GroupID, g.PeerConns))
		}
		list.Rows = rows
		ui.Render(summary, list)
	}

	render()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	events := ui.PollEvents()
	for {
		select {
		case e := <-events:
			switch e.ID {
			case "q", "<C-c>":
				return nil
			}
		case <-ticker.C:
			render()
		}
	}
}

func fetchSnapshot(client *http.Client, addr string) (stats.Snapshot, error) {
	resp, err := client.Get(addr + "/debug/stats")
	if err != nil {
		return stats.Snapshot{}, err
	}
	defer resp.Body.Close()

	var snap stats.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return stats.Snapshot{}, err
	}
	return snap, nil
}
