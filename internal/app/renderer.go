package app

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/philipparndt/gomeasure/pkg/geometry"
	"github.com/philipparndt/gomeasure/pkg/stl"
)

// stlToRaylibMesh converts an STL model to a Raylib mesh with baked lighting
func stlToRaylibMesh(model *stl.Model) rl.Mesh {
	triangleCount := len(model.Triangles)
	vertexCount := triangleCount * 3

	mesh := rl.Mesh{
		VertexCount:   int32(vertexCount),
		TriangleCount: int32(triangleCount),
	}

	vertices := make([]float32, vertexCount*3)
	normals := make([]float32, vertexCount*3)
	texcoords := make([]float32, vertexCount*2)
	colors := make([]uint8, vertexCount*4)

	lightDir := geometry.NewVector3(-0.5, -1.0, -0.5).Normalize()

	idx := 0
	for _, triangle := range model.Triangles {
		normal := triangle.FaceNormal()

		// Min 30% ambient, max 100% diffuse
		lightIntensity := math.Max(0.3, -normal.Dot(lightDir))
		baseColor := 200.0
		r := uint8(baseColor * lightIntensity * 0.5)
		g := uint8(baseColor * lightIntensity * 0.6)
		b := uint8(baseColor * lightIntensity)

		for _, v := range [3]geometry.Vector3{triangle.V1, triangle.V2, triangle.V3} {
			vertices[idx*3+0] = float32(v.X)
			vertices[idx*3+1] = float32(v.Y)
			vertices[idx*3+2] = float32(v.Z)
			normals[idx*3+0] = float32(normal.X)
			normals[idx*3+1] = float32(normal.Y)
			normals[idx*3+2] = float32(normal.Z)
			colors[idx*4+0] = r
			colors[idx*4+1] = g
			colors[idx*4+2] = b
			colors[idx*4+3] = 255
			idx++
		}
	}

	if len(vertices) > 0 {
		mesh.Vertices = &vertices[0]
		mesh.Normals = &normals[0]
		mesh.Texcoords = &texcoords[0]
		mesh.Colors = &colors[0]
	}

	// Upload mesh data to GPU
	rl.UploadMesh(&mesh, false)

	return mesh
}

// modelFrame returns the center and largest dimension of a model
func modelFrame(model *stl.Model) (rl.Vector3, float32) {
	lo, hi := model.Bounds()
	size := hi.Sub(lo)
	return toRL(lo.Midpoint(hi)), float32(math.Max(size.X, math.Max(size.Y, size.Z)))
}
