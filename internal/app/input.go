package app

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// handleInput processes user input
func (app *App) handleInput() {
	mouse := rl.GetMousePosition()
	x, y := float64(mouse.X), float64(mouse.Y)

	// Camera view preset shortcuts
	if rl.IsKeyPressed(rl.KeyHome) {
		app.resetCameraView()
	}
	if rl.IsKeyPressed(rl.KeyT) {
		app.setCameraTopView()
	}
	if rl.IsKeyPressed(rl.KeyOne) {
		app.setCameraFrontView()
	}

	// Display toggles
	if rl.IsKeyPressed(rl.KeyG) {
		app.View.showGrid = !app.View.showGrid
	}
	if rl.IsKeyPressed(rl.KeyW) {
		app.View.showWireframe = !app.View.showWireframe
	}
	if rl.IsKeyPressed(rl.KeyH) {
		app.View.showHelp = !app.View.showHelp
	}

	// Orbit with right drag, pan with middle drag, zoom with the wheel
	if rl.IsMouseButtonDown(rl.MouseRightButton) {
		app.doOrbit(rl.GetMouseDelta())
	}
	if rl.IsMouseButtonDown(rl.MouseMiddleButton) {
		app.doPan(rl.GetMouseDelta())
	}
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		app.doZoom(wheel)
	}

	// Authoring
	if rl.IsKeyPressed(rl.KeyM) {
		app.ctrl.ToggleCreate()
	}
	if rl.IsKeyPressed(rl.KeyX) {
		app.ctrl.DeleteShortcut()
	}
	if rl.IsKeyPressed(rl.KeyEscape) && app.ctrl.Escape() {
		app.quit = true
	}

	app.ctrl.PointerMove(x, y)
	if rl.IsMouseButtonPressed(rl.MouseLeftButton) {
		app.ctrl.PointerDown(x, y)
	}
	if rl.IsMouseButtonReleased(rl.MouseLeftButton) {
		app.ctrl.PointerUp(x, y)
	}
}
