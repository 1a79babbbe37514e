package render

import (
	"cmp"
	"image/color"
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/objectlab/scene"
)

// cylinderSides is how many quads approximate a cylinder's mantle.
const cylinderSides = 16

var lightDir = mgl64.Vec3{0.4, 1, 0.6}.Normalize()

// Face is one flat polygon of a projected object, already in pixels.
type Face struct {
	Points []mgl64.Vec2
	// Shade scales the object colour by how much the face turns towards the light.
	Shade float64
}

type Shadow struct {
	Center mgl64.Vec2
	Radius float64
	Alpha  float64
}

// Sprite is a scene object flattened to screen space for one frame.
type Sprite struct {
	ID      scene.ObjectID
	Kind    scene.Kind
	Depth   float64
	Center  mgl64.Vec2
	Radius  float64
	Faces   []Face
	Color   color.NRGBA
	Opacity float64
	Shadow  Shadow
}

// Flatten projects obj through cam. Objects whose centre is behind the near plane are skipped.
func Flatten(cam *scene.Camera, groundHeight float64, obj *scene.SceneObject) (Sprite, bool) {
	pose := obj.Visual
	center, depth, ok := cam.Project(pose.Position)
	if !ok {
		return Sprite{}, false
	}
	s := Sprite{
		ID:      obj.ID(),
		Kind:    obj.Kind(),
		Depth:   depth,
		Center:  center,
		Color:   obj.Appearance.Color,
		Opacity: obj.Appearance.Opacity,
	}
	half := obj.HalfExtents().Mul(pose.Scale)

	switch obj.Kind() {
	case scene.KindSphere:
		s.Radius = half[0] * cam.PixelsPerUnit(depth)
	case scene.KindBox:
		s.Faces = visibleFaces(cam, pose, boxFaces(half))
	default:
		s.Faces = visibleFaces(cam, pose, prismFaces(half[0], half[1], cylinderSides))
	}

	s.Shadow = shadow(cam, groundHeight, pose.Position, math.Max(half[0], half[2]), obj.Body().Bottom(mgl64.Vec3{0, 1, 0}))
	return s, true
}

// Frame flattens every object of r and orders the sprites back to front.
func Frame(cam *scene.Camera, groundHeight float64, r *scene.Registry) []Sprite {
	var out []Sprite
	for obj := range r.All() {
		if s, ok := Flatten(cam, groundHeight, obj); ok {
			out = append(out, s)
		}
	}
	slices.SortStableFunc(out, func(a, b Sprite) int {
		return cmp.Compare(b.Depth, a.Depth)
	})
	return out
}

func shadow(cam *scene.Camera, groundHeight float64, pos mgl64.Vec3, radius, bottom float64) Shadow {
	foot := mgl64.Vec3{pos[0], groundHeight, pos[2]}
	center, depth, ok := cam.Project(foot)
	if !ok {
		return Shadow{}
	}
	height := math.Max(0, bottom-groundHeight)
	fade := 1 / (1 + height)
	return Shadow{
		Center: center,
		Radius: radius * cam.PixelsPerUnit(depth) * fade,
		Alpha:  0.35 * fade,
	}
}

type localFace struct {
	normal  mgl64.Vec3
	corners []mgl64.Vec3
}

func boxFaces(half mgl64.Vec3) []localFace {
	faces := make([]localFace, 0, 6)
	for k := range 3 {
		u, v := (k+1)%3, (k+2)%3
		for _, sign := range []float64{-1, 1} {
			var n mgl64.Vec3
			n[k] = sign
			corners := make([]mgl64.Vec3, 0, 4)
			for _, c := range [4][2]float64{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}} {
				var p mgl64.Vec3
				p[k] = sign * half[k]
				p[u] = c[0] * half[u]
				p[v] = c[1] * half[v]
				corners = append(corners, p)
			}
			faces = append(faces, localFace{normal: n, corners: corners})
		}
	}
	return faces
}

// prismFaces approximates an upright cylinder with n side quads and two n-gon caps.
func prismFaces(radius, halfHeight float64, n int) []localFace {
	ring := make([]mgl64.Vec3, n)
	for i := range n {
		a := 2 * math.Pi * float64(i) / float64(n)
		ring[i] = mgl64.Vec3{radius * math.Cos(a), 0, radius * math.Sin(a)}
	}
	top, bottom := mgl64.Vec3{0, halfHeight, 0}, mgl64.Vec3{0, -halfHeight, 0}

	faces := make([]localFace, 0, n+2)
	capTop := make([]mgl64.Vec3, n)
	capBottom := make([]mgl64.Vec3, n)
	for i := range n {
		j := (i + 1) % n
		mid := ring[i].Add(ring[j]).Normalize()
		faces = append(faces, localFace{
			normal:  mid,
			corners: []mgl64.Vec3{ring[i].Add(bottom), ring[j].Add(bottom), ring[j].Add(top), ring[i].Add(top)},
		})
		capTop[i] = ring[i].Add(top)
		capBottom[i] = ring[i].Add(bottom)
	}
	faces = append(faces,
		localFace{normal: mgl64.Vec3{0, 1, 0}, corners: capTop},
		localFace{normal: mgl64.Vec3{0, -1, 0}, corners: capBottom},
	)
	return faces
}

// visibleFaces transforms faces into the world and keeps those turned towards the eye.
func visibleFaces(cam *scene.Camera, pose scene.VisualPose, faces []localFace) []Face {
	var out []Face
outer:
	for _, f := range faces {
		n := pose.Rotation.Rotate(f.normal)
		var centroid mgl64.Vec3
		world := make([]mgl64.Vec3, len(f.corners))
		for i, c := range f.corners {
			world[i] = pose.Position.Add(pose.Rotation.Rotate(c))
			centroid = centroid.Add(world[i])
		}
		centroid = centroid.Mul(1 / float64(len(world)))
		if n.Dot(centroid.Sub(cam.Eye)) >= 0 {
			continue
		}
		points := make([]mgl64.Vec2, len(world))
		for i, p := range world {
			px, _, ok := cam.Project(p)
			if !ok {
				continue outer
			}
			points[i] = px
		}
		out = append(out, Face{Points: points, Shade: 0.35 + 0.65*math.Max(0, n.Dot(lightDir))})
	}
	return out
}

// shaded scales c by s, leaving alpha alone.
func shaded(c color.NRGBA, s float64) color.NRGBA {
	scale := func(v uint8) uint8 {
		return uint8(math.Min(255, math.Round(float64(v)*s)))
	}
	return color.NRGBA{R: scale(c.R), G: scale(c.G), B: scale(c.B), A: c.A}
}
