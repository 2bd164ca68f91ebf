package app

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

type edgeKey [2]rl.Vector3

// drawWireframe draws every model edge once
func (app *App) drawWireframe() {
	wireframeColor := rl.NewColor(100, 100, 100, 200)
	drawn := make(map[edgeKey]bool)

	for _, triangle := range app.Model.model.Triangles {
		v1, v2, v3 := toRL(triangle.V1), toRL(triangle.V2), toRL(triangle.V3)
		for _, edge := range [3][2]rl.Vector3{{v1, v2}, {v2, v3}, {v3, v1}} {
			// Shared edges appear in both directions
			key, rev := edgeKey{edge[0], edge[1]}, edgeKey{edge[1], edge[0]}
			if drawn[key] || drawn[rev] {
				continue
			}
			drawn[key] = true
			rl.DrawLine3D(edge[0], edge[1], wireframeColor)
		}
	}
}
