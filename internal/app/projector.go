package app

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/philipparndt/gomeasure/pkg/geometry"
)

// projector maps between screen and world through the live camera
type projector struct {
	camera *rl.Camera3D
}

func (p *projector) Ray(screenX, screenY float64) geometry.Ray {
	r := rl.GetScreenToWorldRay(rl.Vector2{X: float32(screenX), Y: float32(screenY)}, *p.camera)
	return geometry.Ray{Origin: fromRL(r.Position), Direction: fromRL(r.Direction)}
}

func (p *projector) ToScreen(v geometry.Vector3) (float64, float64, bool) {
	pos := toRL(v)
	forward := rl.Vector3Subtract(p.camera.Target, p.camera.Position)
	if rl.Vector3DotProduct(rl.Vector3Subtract(pos, p.camera.Position), forward) <= 0 {
		return 0, 0, false
	}
	s := rl.GetWorldToScreen(pos, *p.camera)
	return float64(s.X), float64(s.Y), true
}

func toRL(v geometry.Vector3) rl.Vector3 {
	return rl.Vector3{X: float32(v.X), Y: float32(v.Y), Z: float32(v.Z)}
}

func fromRL(v rl.Vector3) geometry.Vector3 {
	return geometry.NewVector3(float64(v.X), float64(v.Y), float64(v.Z))
}
