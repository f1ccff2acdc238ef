// Package desktop renders the gui.Controller in a fyne window
package desktop

import (
	"context"
	"image"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"github.com/menta2k/emotion-detector/pkg/gui"
)

// Options configures the window
type Options struct {
	Title         string
	Width         float32
	Height        float32
	FrameInterval time.Duration
	TextTimeout   time.Duration
}

// DefaultOptions returns an 800x600 "Emotion Detector" window polling every 10ms
func DefaultOptions() Options {
	return Options{
		Title:         "Emotion Detector",
		Width:         800,
		Height:        600,
		FrameInterval: 10 * time.Millisecond,
		TextTimeout:   30 * time.Second,
	}
}

// App is the tabbed desktop window
type App struct {
	ctrl    *gui.Controller
	opts    Options
	fyneApp fyne.App
	window  fyne.Window

	display     *canvas.Image
	faceStatus  *widget.Label
	voiceStatus *widget.Label
	textStatus  *widget.Label
	cameraBtn   *widget.Button
	input       *widget.Entry
}

// NewApp builds the window and its three tabs
func NewApp(ctrl *gui.Controller, opts Options) *App {
	a := &App{
		ctrl:    ctrl,
		opts:    opts,
		fyneApp: app.NewWithID("com.menta2k.emotion-detector"),
	}
	a.window = a.fyneApp.NewWindow(opts.Title)
	a.window.Resize(fyne.NewSize(opts.Width, opts.Height))

	tabs := container.NewAppTabs(
		container.NewTabItem("Face Detection", a.faceTab()),
		container.NewTabItem("Voice Analysis", a.voiceTab()),
		container.NewTabItem("Text Analysis", a.textTab()),
	)
	a.window.SetContent(tabs)
	a.window.SetOnClosed(ctrl.Close)
	return a
}

// Run shows the window and blocks until it is closed
func (a *App) Run() {
	a.window.ShowAndRun()
}

func (a *App) faceTab() fyne.CanvasObject {
	a.display = canvas.NewImageFromImage(image.NewNRGBA(image.Rect(0, 0, 640, 480)))
	a.display.FillMode = canvas.ImageFillContain
	a.display.SetMinSize(fyne.NewSize(640, 480))

	a.faceStatus = widget.NewLabel("")
	a.cameraBtn = widget.NewButton("Start Camera", a.onToggleCamera)
	upload := widget.NewButton("Upload Image", a.onUpload)

	controls := container.NewHBox(upload, a.cameraBtn)
	return container.NewBorder(controls, a.faceStatus, nil, nil, a.display)
}

func (a *App) voiceTab() fyne.CanvasObject {
	a.voiceStatus = widget.NewLabel("")
	start := widget.NewButton("Start Recording", func() {
		status, err := a.ctrl.StartRecording()
		if err != nil {
			dialog.ShowError(err, a.window)
			return
		}
		a.voiceStatus.SetText(status)
	})
	stop := widget.NewButton("Stop Recording", func() {
		a.voiceStatus.SetText("Analyzing...")
		go func() {
			status, err := a.ctrl.StopRecording()
			fyne.Do(func() {
				if err != nil {
					a.voiceStatus.SetText("")
					dialog.ShowError(err, a.window)
					return
				}
				a.voiceStatus.SetText(status)
			})
		}()
	})
	return container.NewVBox(start, stop, a.voiceStatus)
}

func (a *App) textTab() fyne.CanvasObject {
	a.input = widget.NewMultiLineEntry()
	a.input.SetPlaceHolder("Enter text to analyze")
	a.textStatus = widget.NewLabel("")
	a.textStatus.Wrapping = fyne.TextWrapWord

	analyze := widget.NewButton("Analyze Text", func() {
		s := a.input.Text
		a.textStatus.SetText("Analyzing...")
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), a.opts.TextTimeout)
			defer cancel()
			status := a.ctrl.AnalyzeText(ctx, s)
			fyne.Do(func() {
				a.textStatus.SetText(status)
			})
		}()
	})
	return container.NewBorder(nil, container.NewVBox(analyze, a.textStatus), nil, nil, a.input)
}

func (a *App) onToggleCamera() {
	active, err := a.ctrl.ToggleCamera()
	if err != nil {
		dialog.ShowError(err, a.window)
		return
	}
	if !active {
		a.cameraBtn.SetText("Start Camera")
		return
	}
	a.cameraBtn.SetText("Stop Camera")
	a.ctrl.StartFrameLoop(a.opts.FrameInterval, func(frame *image.NRGBA, status string) {
		fyne.Do(func() {
			a.showImage(frame, status)
		})
	})
}

func (a *App) onUpload() {
	fd := dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, a.window)
			return
		}
		if r == nil {
			return
		}
		path := r.URI().Path()
		r.Close()

		img, status, err := a.ctrl.UploadImage(path)
		if err != nil {
			dialog.ShowError(err, a.window)
			return
		}
		a.showImage(img, status)
	}, a.window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".jpg", ".jpeg", ".png", ".webp"}))
	fd.Show()
}

func (a *App) showImage(img *image.NRGBA, status string) {
	a.display.Image = img
	a.display.Refresh()
	a.faceStatus.SetText(status)
}
