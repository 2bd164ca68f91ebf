package app

import (
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/philipparndt/gomeasure/pkg/stl"
	"github.com/philipparndt/gomeasure/pkg/watcher"
)

// CameraState holds all camera-related state
type CameraState struct {
	camera        rl.Camera3D
	distance      float32
	angleX        float32
	angleY        float32
	target        rl.Vector3 // Current camera target (can be panned)
	defaultTarget rl.Vector3
	defaultDist   float32
	defaultAngleX float32
	defaultAngleY float32
}

// ModelData holds the optional surface model
type ModelData struct {
	model    *stl.Model
	mesh     rl.Mesh
	material rl.Material
	loaded   bool
	center   rl.Vector3
	size     float32 // max dimension
}

// ViewSettings holds display settings
type ViewSettings struct {
	showWireframe bool
	showFilled    bool
	showGrid      bool
	showHelp      bool
}

// FileWatchState holds model file watching and reload state
type FileWatchState struct {
	sourceFile       string
	fileWatcher      *watcher.FileWatcher
	isLoading        bool
	loadingStartTime time.Time
}
