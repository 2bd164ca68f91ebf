package app

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/philipparndt/gomeasure/pkg/analysis"
	"github.com/philipparndt/gomeasure/pkg/stl"
	"github.com/philipparndt/gomeasure/pkg/watcher"
)

// loadModel parses the STL used as the pickable surface
func loadModel(filePath string) (*stl.Model, error) {
	if ext := strings.ToLower(filepath.Ext(filePath)); ext != ".stl" {
		return nil, fmt.Errorf("unsupported file type: %s (expected .stl)", ext)
	}
	model, err := stl.Parse(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse STL file: %w", err)
	}
	if len(model.Triangles) == 0 {
		return nil, fmt.Errorf("%s contains no triangles", filePath)
	}
	return model, nil
}

// setupFileWatcher reloads the model whenever its file changes. The
// callback hops onto the render goroutine through the mailbox.
func (app *App) setupFileWatcher() error {
	fw, err := watcher.NewFileWatcher(500*time.Millisecond, app.log)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	callback := func(changedFile string) {
		app.log.Info("model file changed", "file", changedFile)
		app.opts.Mailbox.Post(app.reloadModel)
	}
	if err := fw.Watch([]string{app.FileWatch.sourceFile}, callback); err != nil {
		fw.Close()
		return fmt.Errorf("failed to watch files: %w", err)
	}

	fw.Start()
	app.FileWatch.fileWatcher = fw
	return nil
}

// reloadModel parses the model in the background and applies it on the
// render goroutine
func (app *App) reloadModel() {
	if app.FileWatch.isLoading {
		return
	}
	app.FileWatch.isLoading = true
	app.FileWatch.loadingStartTime = time.Now()

	go func() {
		model, err := loadModel(app.FileWatch.sourceFile)
		app.opts.Mailbox.Post(func() {
			app.FileWatch.isLoading = false
			if err != nil {
				app.log.Warn("model reload failed", "err", err)
				return
			}
			app.applyModel(model)
			app.log.Info("model reloaded", "elapsed", time.Since(app.FileWatch.loadingStartTime))
		})
	}()
}

// applyModel swaps in a new surface. Must run on the render goroutine.
func (app *App) applyModel(model *stl.Model) {
	newMesh := stlToRaylibMesh(model)
	if app.Model.loaded {
		rl.UnloadMesh(&app.Model.mesh)
	}

	app.Model.model = model
	app.Model.mesh = newMesh
	app.Model.loaded = true
	app.Model.center, app.Model.size = modelFrame(model)
	app.picker.Surface = model.Triangles
	app.modelInfo = analysis.DescribeModel(model)
}
