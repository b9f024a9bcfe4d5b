package main

import (
	"fmt"
	"log"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/spf13/cobra"

	"github.com/itohio/picolog/pkg/config"
	"github.com/itohio/picolog/pkg/dump"
	"github.com/itohio/picolog/pkg/scope"
)

func viewCmd(opts *options) *cobra.Command {
	var average int

	cmd := &cobra.Command{
		Use:   "view [file]",
		Short: "Plot a dump file",
		Long: `Plot a dump file (default from configuration) as volts over time.
Groups of --average samples are averaged into one point.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.Dump.File = args[0]
			}
			if average > 0 {
				cfg.Dump.Average = average
			}

			runViewer(opts, cfg)
			return nil
		},
	}

	cmd.Flags().IntVarP(&average, "average", "a", 0, "Samples averaged per point (overrides config)")
	return cmd
}

// viewState holds the viewer state.
type viewState struct {
	opts   *options
	cfg    *config.Config
	window fyne.Window
	scope  *scope.ScopeWidget
	info   *widget.Label

	mu   sync.Mutex
	file *dump.File
}

func runViewer(opts *options, cfg *config.Config) {
	application := app.NewWithID("com.itohio.picolog")

	window := application.NewWindow("picolog")
	window.Resize(fyne.NewSize(cfg.Plot.Width, cfg.Plot.Height))
	window.CenterOnScreen()

	state := &viewState{
		opts:   opts,
		cfg:    cfg,
		window: window,
		scope:  scope.New(cfg),
		info:   widget.NewLabel(""),
	}

	content := container.NewBorder(
		createToolbar(state),
		state.info,
		nil,
		nil,
		state.scope,
	)
	window.SetContent(content)

	if f, err := dump.Load(cfg.Dump.File); err != nil {
		log.Printf("No dump to show: %v", err)
		state.info.SetText(fmt.Sprintf("%s: no data", cfg.Dump.File))
	} else {
		state.show(f, cfg.Dump.File)
	}

	window.ShowAndRun()
}

// createToolbar creates the toolbar with Open, Download and Settings buttons.
func createToolbar(state *viewState) fyne.CanvasObject {
	openBtn := widget.NewButtonWithIcon("", theme.FolderOpenIcon(), func() {
		handleOpen(state)
	})
	downloadBtn := widget.NewButtonWithIcon("", theme.DownloadIcon(), func() {
		handleDownload(state)
	})
	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})

	return container.NewHBox(openBtn, downloadBtn, settingsBtn)
}

// show plots f. Must run on the Fyne goroutine.
func (s *viewState) show(f *dump.File, source string) {
	s.mu.Lock()
	s.file = f
	s.mu.Unlock()

	points := f.Points(s.cfg.ADC.VRef, s.cfg.ADC.Resolution, s.cfg.Dump.Average)
	s.scope.UpdateData(points)
	s.info.SetText(fmt.Sprintf("%s: %d samples from %s every %s, %d per point",
		source, len(f.Samples), f.Start().Format("2006-01-02 15:04:05"), f.Step(), s.cfg.Dump.Average))
}

// replot redraws the current file, e.g. after the averaging factor changed.
func (s *viewState) replot() {
	s.mu.Lock()
	f := s.file
	s.mu.Unlock()
	if f != nil {
		s.show(f, s.cfg.Dump.File)
	}
}

func handleOpen(state *viewState) {
	dialog.ShowFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, state.window)
			return
		}
		if reader == nil {
			return
		}
		defer reader.Close()

		f, err := dump.Read(reader)
		if err != nil {
			dialog.ShowError(fmt.Errorf("failed to read %s: %w", reader.URI().Name(), err), state.window)
			return
		}
		state.cfg.Dump.File = reader.URI().Path()
		state.show(f, reader.URI().Name())
	}, state.window)
}

// handleDownload dumps the logger into the dump file and plots it.
func handleDownload(state *viewState) {
	progress := dialog.NewCustomWithoutButtons("Downloading", widget.NewProgressBarInfinite(), state.window)
	progress.Show()

	go func() {
		f, err := download(state.opts, state.cfg.Dump.File)
		fyne.Do(func() {
			progress.Hide()
			if err != nil {
				dialog.ShowError(err, state.window)
				return
			}
			state.show(f, state.cfg.Dump.File)
		})
	}()
}

func download(opts *options, path string) (*dump.File, error) {
	d, _, err := opts.connect()
	if err != nil {
		return nil, err
	}
	defer d.Close()

	f, err := d.Dump()
	if err != nil {
		return nil, err
	}
	if err := f.Save(path); err != nil {
		return nil, err
	}
	return f, nil
}
