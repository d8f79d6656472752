package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/unklstewy/ivao-tracker/internal/registry"
	"github.com/unklstewy/ivao-tracker/pkg/geo"
)

// opTimeout bounds a single registry call from the UI.
const opTimeout = 5 * time.Second

// Admin is the airport registry maintenance screen.
type Admin struct {
	reg      registry.Registry
	airports []registry.Airport

	tviewApp *tview.Application
	pages    *tview.Pages
	table    *tview.Table
	form     *tview.Form
	details  *tview.TextView
	activity *ActivityLog
}

// NewAdmin creates the admin UI for a registry.
func NewAdmin(reg registry.Registry) *Admin {
	a := &Admin{reg: reg}
	a.setupUI()
	return a
}

// Run loads the airports and starts the UI loop.
func (a *Admin) Run() error {
	if err := a.reload(); err != nil {
		a.activity.Error("Failed to load airports: %v", err)
	} else {
		a.activity.Info("Loaded %d airports", len(a.airports))
	}
	return a.tviewApp.Run()
}

// setupUI initializes the user interface
func (a *Admin) setupUI() {
	a.tviewApp = tview.NewApplication()

	a.table = tview.NewTable().
		SetBorders(false).
		SetSelectable(true, false).
		SetFixed(1, 0)
	a.table.SetBorder(true).SetTitle(" Tracked Airports ")
	a.table.SetSelectionChangedFunc(func(row, column int) {
		a.updateDetails()
	})

	a.details = tview.NewTextView().SetDynamicColors(true)
	a.details.SetBorder(true).SetTitle(" Details ")

	a.form = tview.NewForm().
		AddInputField("ICAO", "", 6, nil, nil).
		AddInputField("Latitude", "", 12, nil, nil).
		AddInputField("Longitude", "", 12, nil, nil)
	a.form.AddButton("Add", a.submitForm).
		AddButton("Cancel", func() { a.tviewApp.SetFocus(a.table) })
	a.form.SetBorder(true).SetTitle(" Add Airport ")

	a.activity = NewActivityLog(100)

	help := tview.NewTextView().SetDynamicColors(true)
	help.SetText("[gray]a: add • d/Del: delete • r: reload • Esc: back • q: quit[-]")

	sidebar := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.details, 0, 1, false).
		AddItem(a.form, 11, 0, false)

	body := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(a.table, 0, 3, true).
		AddItem(sidebar, 0, 2, false)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(body, 0, 1, true).
		AddItem(a.activity.View(), 8, 0, false).
		AddItem(help, 1, 0, false)

	a.pages = tview.NewPages().AddPage("main", root, true, true)
	a.tviewApp.SetRoot(a.pages, true)
	a.tviewApp.SetInputCapture(a.handleKeyboard)
}

// handleKeyboard implements the global shortcuts while the table has focus.
func (a *Admin) handleKeyboard(event *tcell.EventKey) *tcell.EventKey {
	if a.tviewApp.GetFocus() != a.table {
		if event.Key() == tcell.KeyEscape {
			a.tviewApp.SetFocus(a.table)
			return nil
		}
		return event
	}

	switch event.Key() {
	case tcell.KeyCtrlC:
		a.tviewApp.Stop()
		return nil
	case tcell.KeyDelete:
		a.confirmDelete()
		return nil
	case tcell.KeyRune:
		switch event.Rune() {
		case 'q':
			a.tviewApp.Stop()
			return nil
		case 'a':
			a.tviewApp.SetFocus(a.form)
			return nil
		case 'd':
			a.confirmDelete()
			return nil
		case 'r':
			if err := a.reload(); err != nil {
				a.activity.Error("Reload failed: %v", err)
			} else {
				a.activity.Info("Loaded %d airports", len(a.airports))
			}
			return nil
		}
	}
	return event
}

// reload reads all airports from the registry into the table.
func (a *Admin) reload() error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	airports, err := a.reg.List(ctx)
	if err != nil {
		return err
	}
	a.airports = airports

	a.table.Clear()
	for col, h := range []string{"ICAO", "LATITUDE", "LONGITUDE", "ADDED"} {
		a.table.SetCell(0, col, tview.NewTableCell(h).
			SetTextColor(tcell.ColorYellow).
			SetSelectable(false))
	}
	for i, ap := range airports {
		row := i + 1
		a.table.SetCell(row, 0, tview.NewTableCell(ap.ICAO).SetTextColor(tcell.ColorWhite))
		a.table.SetCell(row, 1, tview.NewTableCell(fmt.Sprintf("%.4f", ap.Coordinate.Latitude)))
		a.table.SetCell(row, 2, tview.NewTableCell(fmt.Sprintf("%.4f", ap.Coordinate.Longitude)))
		a.table.SetCell(row, 3, tview.NewTableCell(ap.CreatedAt.UTC().Format("2006-01-02 15:04")))
	}
	if len(airports) > 0 {
		a.table.Select(1, 0)
	}

	a.updateDetails()
	return nil
}

// selected returns the airport under the table cursor.
func (a *Admin) selected() (registry.Airport, bool) {
	row, _ := a.table.GetSelection()
	if row < 1 || row > len(a.airports) {
		return registry.Airport{}, false
	}
	return a.airports[row-1], true
}

// updateDetails shows the selected airport and its distance to the others.
func (a *Admin) updateDetails() {
	ap, ok := a.selected()
	if !ok {
		a.details.SetText("[gray]No airport selected[-]")
		return
	}
	a.details.SetText(detailsText(ap, a.airports))
}

// detailsText renders an airport with the great-circle leg to every other
// tracked airport, nearest first.
func detailsText(ap registry.Airport, airports []registry.Airport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[yellow]%s[-]\n", ap.ICAO)
	fmt.Fprintf(&b, "[gray]Pos:[-] [white]%.4f°, %.4f°[-]\n", ap.Coordinate.Latitude, ap.Coordinate.Longitude)
	if !ap.Coordinate.Valid() {
		b.WriteString("[red]Coordinate out of range[-]\n")
		return b.String()
	}

	type leg struct {
		icao     string
		distance float64
		bearing  float64
	}
	var legs []leg
	for _, other := range airports {
		if other.ICAO == ap.ICAO || !other.Coordinate.Valid() {
			continue
		}
		legs = append(legs, leg{
			icao:     other.ICAO,
			distance: geo.DistanceNM(ap.Coordinate, other.Coordinate),
			bearing:  geo.Bearing(ap.Coordinate, other.Coordinate),
		})
	}
	sort.Slice(legs, func(i, j int) bool { return legs[i].distance < legs[j].distance })

	if len(legs) > 0 {
		b.WriteString("\n[yellow]TO TRACKED AIRPORTS[-]\n")
	}
	for _, l := range legs {
		fmt.Fprintf(&b, "  [white]%s[-] %6.0f nm  %03.0f°\n", l.icao, l.distance, l.bearing)
	}
	return b.String()
}

// submitForm adds the airport entered in the form.
func (a *Admin) submitForm() {
	icao := a.form.GetFormItemByLabel("ICAO").(*tview.InputField).GetText()
	lat := a.form.GetFormItemByLabel("Latitude").(*tview.InputField).GetText()
	lon := a.form.GetFormItemByLabel("Longitude").(*tview.InputField).GetText()

	airport, err := a.addAirport(icao, lat, lon)
	if err != nil {
		a.activity.Error("✗ %v", err)
		return
	}

	for _, label := range []string{"ICAO", "Latitude", "Longitude"} {
		a.form.GetFormItemByLabel(label).(*tview.InputField).SetText("")
	}
	a.activity.Info("✓ Airport %s added", airport.ICAO)
	a.tviewApp.SetFocus(a.table)
}

// addAirport validates form input, inserts the airport and reloads the table.
func (a *Admin) addAirport(icao, lat, lon string) (registry.Airport, error) {
	latitude, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return registry.Airport{}, fmt.Errorf("invalid latitude %q", lat)
	}
	longitude, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return registry.Airport{}, fmt.Errorf("invalid longitude %q", lon)
	}

	coord := geo.Coordinate{Latitude: latitude, Longitude: longitude}
	if !coord.Valid() {
		return registry.Airport{}, errors.New("coordinate out of range")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	airport, err := a.reg.Insert(ctx, registry.Airport{ICAO: icao, Coordinate: coord})
	if errors.Is(err, registry.ErrDuplicate) {
		return registry.Airport{}, fmt.Errorf("%s is already tracked", strings.ToUpper(strings.TrimSpace(icao)))
	}
	if err != nil {
		return registry.Airport{}, err
	}

	if err := a.reload(); err != nil {
		return airport, err
	}
	return airport, nil
}

// confirmDelete asks before removing the selected airport.
func (a *Admin) confirmDelete() {
	ap, ok := a.selected()
	if !ok {
		return
	}

	modal := tview.NewModal().
		SetText(fmt.Sprintf("Stop tracking %s?", ap.ICAO)).
		AddButtons([]string{"Delete", "Cancel"}).
		SetDoneFunc(func(buttonIndex int, buttonLabel string) {
			a.pages.RemovePage("confirm")
			a.tviewApp.SetFocus(a.table)
			if buttonLabel != "Delete" {
				return
			}
			if err := a.deleteAirport(ap.ICAO); err != nil {
				a.activity.Error("✗ %v", err)
				return
			}
			a.activity.Info("✓ Airport %s removed", ap.ICAO)
		})

	a.pages.AddPage("confirm", modal, true, true)
}

// deleteAirport removes an airport and reloads the table.
func (a *Admin) deleteAirport(icao string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := a.reg.Delete(ctx, icao); err != nil {
		return err
	}
	return a.reload()
}
