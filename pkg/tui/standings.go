// Package tui provides a terminal viewer for tournament standings.
package tui

import (
	"fmt"
	"strconv"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/pashagolub/clubelo/pkg/journal"
)

var sortFields = []string{"rating", "change", "bonus", "player"}

var standingsHeaders = []string{"Rank", "Player", "Old", "New", "Change", "Bonus", "W-L-D"}

// StandingsView shows a journal.Report as a scrollable table
type StandingsView struct {
	app       *tview.Application
	root      *tview.Flex
	header    *tview.TextView
	table     *tview.Table
	statusBar *tview.TextView
	report    *journal.Report
}

// NewStandingsView builds the view for report
func NewStandingsView(report *journal.Report) *StandingsView {
	v := &StandingsView{
		app:       tview.NewApplication(),
		root:      tview.NewFlex(),
		header:    tview.NewTextView(),
		table:     tview.NewTable(),
		statusBar: tview.NewTextView(),
		report:    report,
	}

	v.setupLayout()
	v.refresh()
	return v
}

func (v *StandingsView) setupLayout() {
	title := v.report.Name
	if title == "" {
		title = v.report.TournamentID
	}

	v.header.SetBorder(true).
		SetTitle(" Tournament Standings ").
		SetTitleAlign(tview.AlignCenter)
	v.header.SetTextAlign(tview.AlignCenter).
		SetText(fmt.Sprintf("%s  (%d players)", title, len(v.report.Standings)))

	v.table.SetBorders(false).
		SetSelectable(true, false).
		SetFixed(1, 0)
	v.table.SetInputCapture(v.handleKey)

	v.statusBar.SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)

	v.root.SetDirection(tview.FlexRow).
		AddItem(v.header, 3, 0, false).
		AddItem(v.table, 0, 1, true).
		AddItem(v.statusBar, 1, 0, false)

	v.app.SetRoot(v.root, true).SetFocus(v.table)
}

// refresh redraws the table from the report
func (v *StandingsView) refresh() {
	v.table.Clear()

	for col, header := range standingsHeaders {
		cell := tview.NewTableCell(header).
			SetTextColor(tcell.ColorYellow).
			SetAlign(tview.AlignCenter).
			SetSelectable(false).
			SetExpansion(1)
		if col == 1 {
			cell.SetExpansion(3).SetAlign(tview.AlignLeft)
		}
		v.table.SetCell(0, col, cell)
	}

	for i, row := range v.report.Standings {
		r := i + 1
		v.table.SetCell(r, 0, tview.NewTableCell(strconv.Itoa(row.Rank)).SetAlign(tview.AlignCenter))
		v.table.SetCell(r, 1, tview.NewTableCell(row.PlayerID).SetAlign(tview.AlignLeft).SetExpansion(3))
		v.table.SetCell(r, 2, tview.NewTableCell(strconv.Itoa(row.OldRating)).SetAlign(tview.AlignRight))
		v.table.SetCell(r, 3, tview.NewTableCell(strconv.Itoa(row.NewRating)).SetAlign(tview.AlignRight))
		v.table.SetCell(r, 4, tview.NewTableCell(fmt.Sprintf("%+d", row.Change)).
			SetAlign(tview.AlignRight).
			SetTextColor(changeColor(row.Change)))
		v.table.SetCell(r, 5, tview.NewTableCell(strconv.Itoa(row.Bonus)).SetAlign(tview.AlignRight))
		v.table.SetCell(r, 6, tview.NewTableCell(row.Record()).SetAlign(tview.AlignCenter))
	}

	if len(v.report.Standings) > 0 {
		v.table.Select(1, 0)
	}

	v.statusBar.SetText(fmt.Sprintf("[gray]Sorted by %s (%s)   S:Sort  O:Order  Q/Esc:Quit[white]",
		v.sortBy(), v.sortOrder()))
}

func changeColor(change int) tcell.Color {
	switch {
	case change > 0:
		return tcell.ColorGreen
	case change < 0:
		return tcell.ColorRed
	default:
		return tcell.ColorWhite
	}
}

func (v *StandingsView) sortBy() string {
	if v.report.SortBy == "" {
		return sortFields[0]
	}
	return v.report.SortBy
}

func (v *StandingsView) sortOrder() string {
	if v.report.SortOrder == "" {
		return "desc"
	}
	return v.report.SortOrder
}

// cycleSortField moves to the next sort column
func (v *StandingsView) cycleSortField() {
	next := sortFields[0]
	for i, field := range sortFields {
		if field == v.sortBy() {
			next = sortFields[(i+1)%len(sortFields)]
			break
		}
	}
	v.report.Sort(next, v.sortOrder())
	v.refresh()
}

func (v *StandingsView) toggleSortOrder() {
	order := "asc"
	if v.sortOrder() == "asc" {
		order = "desc"
	}
	v.report.Sort(v.sortBy(), order)
	v.refresh()
}

func (v *StandingsView) handleKey(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyEsc:
		v.app.Stop()
		return nil
	case tcell.KeyRune:
		switch event.Rune() {
		case 'q', 'Q':
			v.app.Stop()
			return nil
		case 's', 'S':
			v.cycleSortField()
			return nil
		case 'o', 'O':
			v.toggleSortOrder()
			return nil
		}
	}
	return event
}

// Table returns the underlying table, mainly for embedding and tests
func (v *StandingsView) Table() *tview.Table {
	return v.table
}

// Run blocks until the user quits
func (v *StandingsView) Run() error {
	return v.app.Run()
}
