// Package app is the raylib viewer: it draws the optional model surface and
// wires pointer and keyboard input into the interaction controller.
package app

import (
	"errors"
	"fmt"
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/philipparndt/gomeasure/internal/config"
	"github.com/philipparndt/gomeasure/internal/interaction"
	"github.com/philipparndt/gomeasure/internal/logger"
	"github.com/philipparndt/gomeasure/internal/loop"
	"github.com/philipparndt/gomeasure/internal/measurement"
	"github.com/philipparndt/gomeasure/internal/pick"
	"github.com/philipparndt/gomeasure/internal/session"
	"github.com/philipparndt/gomeasure/internal/transport"
	"github.com/philipparndt/gomeasure/internal/visual"
	"github.com/philipparndt/gomeasure/internal/visual/rlvisual"
	"github.com/philipparndt/gomeasure/pkg/analysis"
)

// Options configures a viewer
type Options struct {
	Config    config.Config
	Transport transport.Transport
	// Mailbox is drained once per frame. Transport handlers and file
	// watchers post onto it.
	Mailbox *loop.Mailbox
	// Model optionally overrides Config.View.Model
	Model string
	Title string
	// Status is shown in the HUD, e.g. the relay URL and room
	Status string
	Log    *slog.Logger
}

type App struct {
	Camera    CameraState
	Model     ModelData
	View      ViewSettings
	FileWatch FileWatchState

	opts Options
	log  *slog.Logger

	registry  *measurement.Registry
	session   *session.Adapter
	ctrl      *interaction.Controller
	layer     *rlvisual.Layer
	proj      *visual.Projection
	picker    *pick.ScenePicker
	projector *projector

	palette   config.Palette
	modelInfo analysis.ModelInfo
	font      rl.Font
	quit      bool
}

// New validates the options. The window is opened by Run.
func New(opts Options) (*App, error) {
	if opts.Transport == nil {
		return nil, errors.New("app: transport is required")
	}
	if opts.Mailbox == nil {
		return nil, errors.New("app: mailbox is required")
	}
	if opts.Title == "" {
		opts.Title = "GoMeasure"
	}
	if opts.Model == "" {
		opts.Model = opts.Config.View.Model
	}
	palette, err := opts.Config.View.Colors.Palette()
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	app := &App{
		opts:    opts,
		log:     logger.For(opts.Log, logger.AreaApp),
		palette: palette,
		View: ViewSettings{
			showWireframe: false,
			showFilled:    true,
			showGrid:      true,
		},
		FileWatch: FileWatchState{sourceFile: opts.Model},
	}
	app.registry = measurement.NewRegistry(opts.Log)
	app.session = session.New(opts.Transport, app.registry, opts.Log)
	return app, nil
}

// ApplyConfig takes over the settings that can change while running.
// Must run on the render goroutine.
func (app *App) ApplyConfig(c config.Config) {
	palette, err := c.View.Colors.Palette()
	if err != nil {
		app.log.Warn("ignoring colors", "err", err)
	} else {
		app.palette = palette
		if app.layer != nil {
			app.layer.SetPalette(palette)
		}
	}
	if app.picker != nil {
		app.picker.EndpointRadius = c.View.HoverRadius
		app.picker.GroundPlane = c.View.GroundPlane
	}
	if err := logger.SetLevel(c.Log.Level); err != nil {
		app.log.Warn("ignoring log level", "err", err)
	}
	app.opts.Config = c
	app.log.Info("configuration applied")
}

// ConnectionLost restores measurements whose moves will never be
// confirmed and marks the HUD. Must run on the render goroutine.
func (app *App) ConnectionLost(err error) {
	app.opts.Status = "disconnected"
	if err != nil {
		app.opts.Status += ": " + err.Error()
	}
	if app.ctrl != nil {
		app.ctrl.ReleasePending()
	}
}

// Run opens the window and blocks until it is closed
func (app *App) Run() error {
	view := app.opts.Config.View
	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagWindowHighdpi | rl.FlagMsaa4xHint) // Must be before InitWindow
	rl.InitWindow(int32(view.Width), int32(view.Height), app.opts.Title)
	defer rl.CloseWindow()
	rl.SetTargetFPS(60)
	// Escape belongs to the controller
	rl.SetExitKey(0)

	app.font = rl.GetFontDefault()
	app.Model.material = rl.LoadMaterialDefault()

	app.layer = rlvisual.NewLayer(app.palette, app.font)
	app.proj = visual.NewProjection(app.layer)
	app.projector = &projector{camera: &app.Camera.camera}
	app.picker = &pick.ScenePicker{
		Projector:      app.projector,
		Entities:       app.registry,
		GroundPlane:    view.GroundPlane,
		EndpointRadius: view.HoverRadius,
		Hidden:         app.proj.Hidden,
	}
	app.ctrl = interaction.NewController(interaction.Config{
		Picker:     app.picker,
		Entities:   app.registry,
		Projection: app.proj,
		Layer:      app.layer,
		Intents:    app.session,
		Log:        app.opts.Log,
	})

	// The projection must be current before the controller releases
	// its pending previews.
	app.session.Observe(session.Project(app.proj))
	app.session.Observe(app.ctrl)
	app.session.Start()
	defer app.session.Close()

	center, size := rl.Vector3{}, float32(10)
	if app.FileWatch.sourceFile != "" {
		model, err := loadModel(app.FileWatch.sourceFile)
		if err != nil {
			return err
		}
		app.applyModel(model)
		center, size = app.Model.center, app.Model.size
		app.log.Info("model loaded", "file", app.FileWatch.sourceFile, "triangles", len(model.Triangles))

		if err := app.setupFileWatcher(); err != nil {
			app.log.Warn("auto-reload not available", "err", err)
		} else {
			defer app.FileWatch.fileWatcher.Close()
		}
	}
	app.layer.PointRadius = size * 0.005
	app.initCamera(center, size)

	for !app.quit && !rl.WindowShouldClose() {
		app.opts.Mailbox.Drain()

		app.handleInput()
		app.ctrl.Tick()
		app.updateCamera()

		rl.BeginDrawing()
		rl.ClearBackground(rl.NewColor(15, 18, 25, 255))

		rl.BeginMode3D(app.Camera.camera)
		if app.Model.loaded && app.View.showFilled {
			rl.DrawMesh(app.Model.mesh, app.Model.material, rl.MatrixIdentity())
		}
		if app.Model.loaded && app.View.showWireframe {
			app.drawWireframe()
		}
		if app.View.showGrid {
			rl.DrawGrid(20, gridSpacing(size))
		}
		app.layer.Draw3D()
		rl.EndMode3D()

		app.layer.DrawLabels(app.Camera.camera)
		app.drawHUD()
		rl.EndDrawing()
	}

	if app.Model.loaded {
		rl.UnloadMesh(&app.Model.mesh)
	}
	return nil
}

func gridSpacing(size float32) float32 {
	spacing := float32(1)
	for spacing*20 < size {
		spacing *= 10
	}
	return spacing
}
