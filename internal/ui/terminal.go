// Package ui prints colored terminal output and position tables for the
// exchangesim CLI. Grounded on the teacher's internal/ui/terminal.go
// (fatih/color banner and section helpers) and the pack's
// olekukonko/tablewriter usage in console.go, adapted from candle/backtest
// reporting to position reporting.
package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"exchangesim/internal/domain"
	"exchangesim/internal/model"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// PrintBanner prints the application banner.
func PrintBanner() {
	banner := `
╔═══════════════════════════════════════════════════════════╗
║                                                           ║
║   ███████╗██╗  ██╗ ██████╗██╗  ██╗ █████╗ ███╗   ██╗     ║
║   ██╔════╝╚██╗██╔╝██╔════╝██║  ██║██╔══██╗████╗  ██║     ║
║   █████╗   ╚███╔╝ ██║     ███████║███████║██╔██╗ ██║     ║
║   ██╔══╝   ██╔██╗ ██║     ██╔══██║██╔══██║██║╚██╗██║     ║
║   ███████╗██╔╝ ██╗╚██████╗██║  ██║██║  ██║██║ ╚████║     ║
║   ╚══════╝╚═╝  ╚═╝ ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝╚═╝  ╚═══╝     ║
║                                                           ║
║              spot / perpetual exchange simulator          ║
║                                                           ║
╚═══════════════════════════════════════════════════════════╝
`
	fmt.Println(cyan(banner))
}

// PrintSection prints a section header.
func PrintSection(title string) {
	line := strings.Repeat("═", 60)
	fmt.Printf("\n%s\n", cyan(line))
	fmt.Printf("%s %s\n", cyan("▶"), bold(title))
	fmt.Printf("%s\n\n", cyan(line))
}

// PrintSuccess prints a success message.
func PrintSuccess(msg string) { fmt.Printf("%s %s\n", green("✓"), msg) }

// PrintError prints an error message.
func PrintError(msg string) { fmt.Printf("%s %s\n", red("✗"), msg) }

// PrintWarning prints a warning message.
func PrintWarning(msg string) { fmt.Printf("%s %s\n", yellow("⚠"), msg) }

// PrintInfo prints an informational message.
func PrintInfo(msg string) { fmt.Printf("%s %s\n", cyan("ℹ"), msg) }

// PrintPositionTable renders open/closed positions as a table.
func PrintPositionTable(positions []*model.Position) {
	if len(positions) == 0 {
		PrintInfo("No positions")
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Market", "Side", "Status", "Entry", "Size", "Margin", "PnL")

	for _, p := range positions {
		pnlStr := p.PnL.StringFixed(2)
		if p.Side == domain.PositionSideLong && p.PnL.IsPositive() {
			pnlStr = green(pnlStr)
		} else if p.PnL.IsNegative() {
			pnlStr = red(pnlStr)
		}

		table.Append(
			string(p.Market),
			string(p.Side),
			string(p.Status),
			p.EntryPrice.StringFixed(2),
			p.Size.StringFixed(4),
			p.Margin.StringFixed(2),
			pnlStr,
		)
	}
	table.Render()
}
