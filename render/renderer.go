package render

import (
	"image"
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/kamstrup/intmap"
	"github.com/plus3/objectlab/scene"
)

// discSize is the pixel diameter sphere sprites are baked at before scaling.
const discSize = 128

var (
	whiteImage    = ebiten.NewImage(3, 3)
	whiteSubImage = whiteImage.SubImage(image.Rect(1, 1, 2, 2)).(*ebiten.Image)
)

func init() {
	whiteImage.Fill(color.White)
}

// disc is the baked shaded image of one sphere.
type disc struct {
	img   *ebiten.Image
	color color.NRGBA
}

// Renderer draws a scene with ebiten's vector package. Render snapshots the registry during the
// simulation frame and Draw paints the snapshot from ebiten's Draw callback.
// It is also a scene.Lifecycle so baked images are released when their object is destroyed.
type Renderer struct {
	Camera       *scene.Camera
	GroundHeight float64
	// GridExtent is the half size in metres of the ground grid.
	GridExtent int
	Background color.Color

	sprites []Sprite
	discs   *intmap.Map[scene.ObjectID, *disc]

	highlight    scene.ObjectID
	hasHighlight bool

	grid      *ebiten.Image
	gridEye   mgl64.Vec3
	gridSize  image.Point
	gridValid bool

	vertices []ebiten.Vertex
	indices  []uint16
}

func New(cam *scene.Camera, groundHeight float64) *Renderer {
	return &Renderer{
		Camera:       cam,
		GroundHeight: groundHeight,
		GridExtent:   10,
		Background:   color.RGBA{245, 245, 240, 255},
		discs:        intmap.New[scene.ObjectID, *disc](64),
	}
}

func (r *Renderer) Render(reg *scene.Registry) {
	r.sprites = Frame(r.Camera, r.GroundHeight, reg)
}

// Sprites returns the snapshot taken by the last Render, back to front.
func (r *Renderer) Sprites() []Sprite { return r.sprites }

// Resources is the number of baked images currently held.
func (r *Renderer) Resources() int { return r.discs.Len() }

// SetHighlight outlines id on the next Draw. ok false removes the outline.
func (r *Renderer) SetHighlight(id scene.ObjectID, ok bool) {
	r.highlight, r.hasHighlight = id, ok
}

func (r *Renderer) ObjectCreated(*scene.SceneObject) {}

func (r *Renderer) ObjectDestroyed(obj *scene.SceneObject) {
	if d, ok := r.discs.Get(obj.ID()); ok {
		if d.img != nil {
			d.img.Deallocate()
		}
		r.discs.Del(obj.ID())
	}
	if r.hasHighlight && r.highlight == obj.ID() {
		r.hasHighlight = false
	}
}

func (r *Renderer) Draw(screen *ebiten.Image) {
	screen.Fill(r.Background)
	r.drawGrid(screen)

	for _, s := range r.sprites {
		if s.Shadow.Radius > 0 {
			vector.DrawFilledCircle(screen, float32(s.Shadow.Center[0]), float32(s.Shadow.Center[1]), float32(s.Shadow.Radius),
				color.NRGBA{0, 0, 0, uint8(255 * s.Shadow.Alpha * s.Opacity)}, true)
		}
	}

	for _, s := range r.sprites {
		switch s.Kind {
		case scene.KindSphere:
			r.drawSphere(screen, s)
		default:
			for _, f := range s.Faces {
				r.fillPolygon(screen, f.Points, shaded(s.Color, f.Shade), s.Opacity)
			}
		}
		if r.hasHighlight && s.ID == r.highlight {
			r.outline(screen, s)
		}
	}
}

func (r *Renderer) drawSphere(screen *ebiten.Image, s Sprite) {
	if s.Radius <= 0 {
		return
	}
	d := r.bake(s)
	op := &ebiten.DrawImageOptions{}
	scale := 2 * s.Radius / discSize
	op.GeoM.Translate(-discSize/2, -discSize/2)
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(s.Center[0], s.Center[1])
	op.ColorScale.ScaleAlpha(float32(s.Opacity))
	op.Filter = ebiten.FilterLinear
	screen.DrawImage(d.img, op)
}

// bake returns the shaded disc for a sphere, redrawing it when the colour changed.
func (r *Renderer) bake(s Sprite) *disc {
	d, ok := r.discs.Get(s.ID)
	if ok && d.color == s.Color {
		return d
	}
	if !ok {
		d = &disc{img: ebiten.NewImage(discSize, discSize)}
		r.discs.Put(s.ID, d)
	}
	d.color = s.Color
	d.img.Clear()

	const rings = 12
	c := float32(discSize) / 2
	for i := range rings {
		t := float64(i) / rings
		radius := c * float32(1-t*0.85)
		// the highlight drifts towards the light as the rings shrink
		off := float32(t) * c * 0.35
		vector.DrawFilledCircle(d.img, c-off, c-off, radius, shaded(s.Color, 0.55+0.6*t), true)
	}
	return d
}

func (r *Renderer) fillPolygon(screen *ebiten.Image, points []mgl64.Vec2, c color.NRGBA, opacity float64) {
	if len(points) < 3 {
		return
	}
	var path vector.Path
	path.MoveTo(float32(points[0][0]), float32(points[0][1]))
	for _, p := range points[1:] {
		path.LineTo(float32(p[0]), float32(p[1]))
	}
	path.Close()

	r.vertices, r.indices = path.AppendVerticesAndIndicesForFilling(r.vertices[:0], r.indices[:0])
	alpha := float32(c.A) / 255 * float32(opacity)
	for i := range r.vertices {
		v := &r.vertices[i]
		v.SrcX, v.SrcY = 1, 1
		v.ColorR = float32(c.R) / 255 * alpha
		v.ColorG = float32(c.G) / 255 * alpha
		v.ColorB = float32(c.B) / 255 * alpha
		v.ColorA = alpha
	}
	screen.DrawTriangles(r.vertices, r.indices, whiteSubImage, &ebiten.DrawTrianglesOptions{AntiAlias: true})
}

func (r *Renderer) outline(screen *ebiten.Image, s Sprite) {
	highlight := color.RGBA{255, 200, 40, 255}
	if s.Kind == scene.KindSphere {
		vector.StrokeCircle(screen, float32(s.Center[0]), float32(s.Center[1]), float32(s.Radius+2), 2, highlight, true)
		return
	}
	for _, f := range s.Faces {
		for i, p := range f.Points {
			q := f.Points[(i+1)%len(f.Points)]
			vector.StrokeLine(screen, float32(p[0]), float32(p[1]), float32(q[0]), float32(q[1]), 1.5, highlight, true)
		}
	}
}

// drawGrid paints the cached ground grid, rebuilding it when the camera or viewport changed.
func (r *Renderer) drawGrid(screen *ebiten.Image) {
	size := screen.Bounds().Size()
	if !r.gridValid || r.gridEye != r.Camera.Eye || r.gridSize != size {
		if r.grid == nil || r.gridSize != size {
			if r.grid != nil {
				r.grid.Deallocate()
			}
			r.grid = ebiten.NewImage(size.X, size.Y)
		}
		r.grid.Clear()
		r.renderGrid(r.grid)
		r.gridEye, r.gridSize, r.gridValid = r.Camera.Eye, size, true
	}
	screen.DrawImage(r.grid, nil)
}

func (r *Renderer) renderGrid(dst *ebiten.Image) {
	lineColor := color.RGBA{210, 210, 205, 255}
	axisColor := color.RGBA{170, 170, 165, 255}
	n := float64(r.GridExtent)
	for i := -r.GridExtent; i <= r.GridExtent; i++ {
		c := lineColor
		if i == 0 {
			c = axisColor
		}
		f := float64(i)
		r.groundLine(dst, mgl64.Vec3{f, r.GroundHeight, -n}, mgl64.Vec3{f, r.GroundHeight, n}, c)
		r.groundLine(dst, mgl64.Vec3{-n, r.GroundHeight, f}, mgl64.Vec3{n, r.GroundHeight, f}, c)
	}
}

// groundLine draws the part of a world segment that lies in front of the camera.
func (r *Renderer) groundLine(dst *ebiten.Image, a, b mgl64.Vec3, c color.Color) {
	fwd := r.Camera.Forward()
	near := r.Camera.Near * 1.01
	da := a.Sub(r.Camera.Eye).Dot(fwd)
	db := b.Sub(r.Camera.Eye).Dot(fwd)
	if da < near && db < near {
		return
	}
	if da < near {
		a = a.Add(b.Sub(a).Mul((near - da) / (db - da)))
	} else if db < near {
		b = b.Add(a.Sub(b).Mul((near - db) / (da - db)))
	}
	pa, _, okA := r.Camera.Project(a)
	pb, _, okB := r.Camera.Project(b)
	if !okA || !okB || math.IsInf(pa[0], 0) || math.IsInf(pb[0], 0) {
		return
	}
	vector.StrokeLine(dst, float32(pa[0]), float32(pa[1]), float32(pb[0]), float32(pb[1]), 1, c, true)
}
