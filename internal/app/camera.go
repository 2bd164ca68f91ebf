package app

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
)

const (
	minCameraDistance = 0.1
	maxPitch          = math.Pi/2 - 0.01
)

// initCamera frames a scene of the given center and size
func (app *App) initCamera(center rl.Vector3, size float32) {
	if size <= 0 {
		size = 10
	}
	distance := size * 2

	app.Camera.target = center
	app.Camera.defaultTarget = center
	app.Camera.distance = distance
	app.Camera.angleX = 0.5
	app.Camera.angleY = 0.6
	app.Camera.defaultDist = distance
	app.Camera.defaultAngleX = 0.5
	app.Camera.defaultAngleY = 0.6

	app.Camera.camera = rl.Camera3D{
		Position:   rl.Vector3{X: 0, Y: 0, Z: distance},
		Target:     center,
		Up:         rl.Vector3{X: 0, Y: 1, Z: 0},
		Fovy:       45.0,
		Projection: rl.CameraPerspective,
	}
	app.updateCamera()
}

// resetCameraView resets the camera to the default view
func (app *App) resetCameraView() {
	app.Camera.distance = app.Camera.defaultDist
	app.Camera.angleX = app.Camera.defaultAngleX
	app.Camera.angleY = app.Camera.defaultAngleY
	app.Camera.target = app.Camera.defaultTarget
}

// setCameraTopView looks straight down onto the ground plane
func (app *App) setCameraTopView() {
	app.Camera.angleX = maxPitch
	app.Camera.angleY = 0
}

// setCameraFrontView looks along -Z
func (app *App) setCameraFrontView() {
	app.Camera.angleX = 0
	app.Camera.angleY = 0
}

// updateCamera updates camera position based on angles
func (app *App) updateCamera() {
	c := &app.Camera
	x := c.distance * float32(math.Cos(float64(c.angleX))) * float32(math.Sin(float64(c.angleY)))
	y := c.distance * float32(math.Sin(float64(c.angleX)))
	z := c.distance * float32(math.Cos(float64(c.angleX))) * float32(math.Cos(float64(c.angleY)))

	c.camera.Position = rl.Vector3{
		X: c.target.X + x,
		Y: c.target.Y + y,
		Z: c.target.Z + z,
	}
	c.camera.Target = c.target
}

// doOrbit rotates around the target based on mouse delta
func (app *App) doOrbit(delta rl.Vector2) {
	app.Camera.angleY -= delta.X * 0.005
	app.Camera.angleX += delta.Y * 0.005
	app.Camera.angleX = float32(math.Max(-maxPitch, math.Min(maxPitch, float64(app.Camera.angleX))))
}

// doZoom scales the camera distance by wheel movement
func (app *App) doZoom(wheel float32) {
	app.Camera.distance *= float32(math.Pow(0.9, float64(wheel)))
	if app.Camera.distance < minCameraDistance {
		app.Camera.distance = minCameraDistance
	}
}

// doPan performs camera panning based on mouse delta
func (app *App) doPan(delta rl.Vector2) {
	forward := rl.Vector3Normalize(rl.Vector3Subtract(app.Camera.target, app.Camera.camera.Position))
	right := rl.Vector3Normalize(rl.Vector3CrossProduct(forward, app.Camera.camera.Up))
	up := rl.Vector3Normalize(rl.Vector3CrossProduct(right, forward))

	// Pan speed based on distance from target
	panSpeed := app.Camera.distance * 0.001

	rightMove := rl.Vector3Scale(right, -delta.X*panSpeed)
	upMove := rl.Vector3Scale(up, delta.Y*panSpeed)

	app.Camera.target = rl.Vector3Add(app.Camera.target, rightMove)
	app.Camera.target = rl.Vector3Add(app.Camera.target, upMove)
}
