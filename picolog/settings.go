package main

import (
	"fmt"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/picolog/pkg/device"
)

// showSettingsDialog displays a settings dialog with tabs for the viewer configuration.
func showSettingsDialog(state *viewState) {
	tabs := container.NewAppTabs(
		createSerialTab(state),
		createPlotTab(state),
		createADCTab(state),
	)

	content := container.NewBorder(nil, nil, nil, nil, tabs)
	d := dialog.NewCustom("Settings", "Close", content, state.window)
	d.Resize(fyne.NewSize(500, 300))
	d.Show()
}

// createSerialTab creates the Serial configuration tab.
func createSerialTab(state *viewState) *container.TabItem {
	ports, err := device.Ports()
	portOptions := []string{}
	portMap := make(map[string]string) // Map display name to actual port name

	if err == nil {
		for _, port := range ports {
			displayName := port.Name
			if port.Description != "" && port.Description != port.Name {
				displayName = fmt.Sprintf("%s (%s)", port.Name, port.Description)
			}
			portOptions = append(portOptions, displayName)
			portMap[displayName] = port.Name
		}
	}

	currentPort := state.cfg.Serial.Port
	currentDisplay := currentPort
	found := false
	for _, opt := range portOptions {
		if portMap[opt] == currentPort {
			currentDisplay = opt
			found = true
			break
		}
	}
	if !found && currentPort != "" {
		portOptions = append(portOptions, currentPort)
		portMap[currentPort] = currentPort
	}

	portSelect := widget.NewSelect(portOptions, nil)
	if currentDisplay != "" {
		portSelect.SetSelected(currentDisplay)
	}

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Serial Port", Widget: portSelect},
		},
		OnSubmit: func() {
			if portSelect.Selected == "" {
				return
			}
			selected := portMap[portSelect.Selected]
			if selected == "" {
				selected = portSelect.Selected
			}
			state.cfg.Serial.Port = selected
			saveSettings(state)
		},
	}

	return container.NewTabItem("Serial", form)
}

// createPlotTab creates the Plot configuration tab.
func createPlotTab(state *viewState) *container.TabItem {
	averageEntry := widget.NewEntry()
	averageEntry.SetText(strconv.Itoa(state.cfg.Dump.Average))

	maxPointsEntry := widget.NewEntry()
	maxPointsEntry.SetText(strconv.Itoa(state.cfg.Plot.MaxPoints))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Samples per point", Widget: averageEntry},
			{Text: "Max points (restart)", Widget: maxPointsEntry},
		},
		OnSubmit: func() {
			if v, err := strconv.Atoi(averageEntry.Text); err == nil && v > 0 {
				state.cfg.Dump.Average = v
			}
			if v, err := strconv.Atoi(maxPointsEntry.Text); err == nil && v > 0 {
				state.cfg.Plot.MaxPoints = v
			}
			saveSettings(state)
			state.replot()
		},
	}

	return container.NewTabItem("Plot", form)
}

// createADCTab creates the ADC configuration tab.
func createADCTab(state *viewState) *container.TabItem {
	vrefEntry := widget.NewEntry()
	vrefEntry.SetText(fmt.Sprintf("%.2f", state.cfg.ADC.VRef))

	bitsEntry := widget.NewEntry()
	bitsEntry.SetText(strconv.Itoa(state.cfg.ADC.Resolution))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "VRef (V)", Widget: vrefEntry},
			{Text: "Resolution (bits)", Widget: bitsEntry},
		},
		OnSubmit: func() {
			if v, err := strconv.ParseFloat(vrefEntry.Text, 32); err == nil && v > 0 {
				state.cfg.ADC.VRef = float32(v)
			}
			if v, err := strconv.Atoi(bitsEntry.Text); err == nil && v > 0 && v <= 16 {
				state.cfg.ADC.Resolution = v
			}
			saveSettings(state)
			state.replot()
		},
	}

	return container.NewTabItem("ADC", form)
}

func saveSettings(state *viewState) {
	if err := state.cfg.Save(state.opts.configFile); err != nil {
		dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
	}
}
