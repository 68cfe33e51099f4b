package main

import (
	"fmt"
	"sort"
	"strings"

	"articlesync/pkg/types"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var (
	primaryColor = lipgloss.Color("#FF79C6")
	accentColor  = lipgloss.Color("#50FA7B")
	dangerColor  = lipgloss.Color("#FF5555")
	mutedColor   = lipgloss.Color("#6272A4")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#8BE9FD")).
			Padding(0, 1)

	rowStyle = lipgloss.NewStyle().
			Padding(0, 1)

	okStyle     = rowStyle.Foreground(accentColor)
	failedStyle = rowStyle.Foreground(dangerColor)
	mutedStyle  = lipgloss.NewStyle().Foreground(mutedColor)
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Sync every configured peer and show the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger(verbose)
			defer logger.Sync()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			in, err := newInstance(cfg, logger)
			if err != nil {
				return err
			}
			defer in.client.Close()

			local := in.store.Len()
			results := in.syncPeers(cmd.Context())
			all, err := in.store.All()
			if err != nil {
				return err
			}

			fmt.Println(titleStyle.Render("articlesync " + cfg.InstanceID))
			fmt.Println(renderPeerStatus(in, results, all))
			fmt.Println(mutedStyle.Render(fmt.Sprintf("%d local, %d imported, merge policy %s",
				local, len(all)-local, cfg.Policy())))
			return nil
		},
	}
}

func renderPeerStatus(in *instance, results map[string]error, articles []types.Article) string {
	counts := make(map[string]int)
	for _, a := range articles {
		if !a.Local {
			counts[a.Instance]++
		}
	}

	peers := in.directory.Peers()
	sort.Slice(peers, func(i, j int) bool {
		return peers[i].Instance.ID < peers[j].Instance.ID
	})

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(primaryColor)).
		Headers("PEER", "ADDRESS", "STATUS", "ARTICLES")

	statuses := make([]bool, 0, len(peers))
	for _, p := range peers {
		err := results[p.Instance.ID]
		state := "synced"
		if err != nil {
			state = truncate(err.Error(), 48)
		}
		statuses = append(statuses, err == nil)
		t.Row(p.Instance.ID, p.Address, state, fmt.Sprintf("%d", counts[p.Instance.ID]))
	}

	t.StyleFunc(func(row, col int) lipgloss.Style {
		switch {
		case row == table.HeaderRow:
			return headerStyle
		case col == 2 && row >= 0 && row < len(statuses):
			if statuses[row] {
				return okStyle
			}
			return failedStyle
		default:
			return rowStyle
		}
	})

	return t.Render()
}

func renderArticles(owner string, articles []types.Article) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(primaryColor)).
		Headers("TITLE", "ID", "VERSION").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return rowStyle
		})

	for _, a := range articles {
		t.Row(a.Title, a.ID, truncate(a.Version, 12))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Imported %d articles from %s", len(articles), owner)))
	b.WriteString("\n")
	b.WriteString(t.Render())
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
