package surface

import (
	"encoding/json"
	"image"

	"github.com/noteboard/noteboard/internal/geom"
)

// DrawCommand represents a single drawing operation for the frontend to execute.
// The frontend receives a list of these and replays them on a Canvas2D context,
// calling ctx[op](...args) or assigning ctx[op] = value for style properties.
type DrawCommand struct {
	Op    string    `json:"op"`              // Canvas2D method or property name
	Args  []float64 `json:"args,omitempty"`  // numeric arguments
	Value string    `json:"value,omitempty"` // style value (color, cap, composite op)
	Image string    `json:"image,omitempty"` // image source for drawImage
}

// Recorder is a Context that records draw commands instead of rasterizing.
// It also acts as a Surface with a fixed size and pixel ratio.
type Recorder struct {
	size     geom.Size
	dpr      float64
	m        geom.Matrix2D
	stack    []geom.Matrix2D
	commands []DrawCommand
}

var (
	_ Surface   = (*Recorder)(nil)
	_ Context   = (*Recorder)(nil)
	_ Resizable = (*Recorder)(nil)
)

// NewRecorder creates a recorder for a surface of the given logical size.
func NewRecorder(size geom.Size, dpr float64) *Recorder {
	if dpr <= 0 {
		dpr = 1
	}
	return &Recorder{size: size, dpr: dpr, m: geom.Identity()}
}

func (r *Recorder) Size() geom.Size  { return r.size }
func (r *Recorder) DPR() float64     { return r.dpr }
func (r *Recorder) Context() Context { return r }

// Resize changes the logical size; a "resize" command carries the device size.
func (r *Recorder) Resize(size geom.Size, dpr float64) {
	if dpr <= 0 {
		dpr = 1
	}
	r.size, r.dpr = size, dpr
	w, h := DeviceSize(r)
	r.emit("resize", float64(w), float64(h))
}

// Commands returns the commands recorded since the last Flush.
func (r *Recorder) Commands() []DrawCommand {
	return r.commands
}

// Flush returns and clears the recorded commands.
func (r *Recorder) Flush() []DrawCommand {
	out := r.commands
	r.commands = nil
	return out
}

// Ops returns just the op names, mostly useful in tests.
func (r *Recorder) Ops() []string {
	ops := make([]string, len(r.commands))
	for i, c := range r.commands {
		ops[i] = c.Op
	}
	return ops
}

func (r *Recorder) emit(op string, args ...float64) {
	r.commands = append(r.commands, DrawCommand{Op: op, Args: args})
}

func (r *Recorder) set(op, value string) {
	r.commands = append(r.commands, DrawCommand{Op: op, Value: value})
}

func (r *Recorder) Save() {
	r.stack = append(r.stack, r.m)
	r.emit("save")
}

func (r *Recorder) Restore() {
	if n := len(r.stack); n > 0 {
		r.m = r.stack[n-1]
		r.stack = r.stack[:n-1]
	}
	r.emit("restore")
}

func (r *Recorder) SetTransform(m geom.Matrix2D) {
	r.m = m
	r.emit("setTransform", m.ToSlice()...)
}

func (r *Recorder) Transform() geom.Matrix2D { return r.m }

func (r *Recorder) ClearRect(x, y, w, h float64) { r.emit("clearRect", x, y, w, h) }
func (r *Recorder) FillRect(x, y, w, h float64)  { r.emit("fillRect", x, y, w, h) }

func (r *Recorder) DrawImage(img image.Image, x, y, w, h float64) {
	src := ""
	if bm, ok := img.(*Bitmap); ok {
		src = bm.Src
	}
	r.commands = append(r.commands, DrawCommand{Op: "drawImage", Args: []float64{x, y, w, h}, Image: src})
}

func (r *Recorder) BeginPath()              { r.emit("beginPath") }
func (r *Recorder) MoveTo(x, y float64)     { r.emit("moveTo", x, y) }
func (r *Recorder) LineTo(x, y float64)     { r.emit("lineTo", x, y) }
func (r *Recorder) Rect(x, y, w, h float64) { r.emit("rect", x, y, w, h) }
func (r *Recorder) ClosePath()              { r.emit("closePath") }
func (r *Recorder) Stroke()                 { r.emit("stroke") }
func (r *Recorder) Fill()                   { r.emit("fill") }

func (r *Recorder) Arc(x, y, radius, start, end float64) {
	r.emit("arc", x, y, radius, start, end)
}

func (r *Recorder) SetStrokeStyle(c string) { r.set("strokeStyle", c) }
func (r *Recorder) SetFillStyle(c string)   { r.set("fillStyle", c) }
func (r *Recorder) SetLineWidth(w float64)  { r.emit("lineWidth", w) }
func (r *Recorder) SetLineCap(c string)     { r.set("lineCap", c) }
func (r *Recorder) SetLineJoin(j string)    { r.set("lineJoin", j) }
func (r *Recorder) SetLineDash(d []float64) {
	r.commands = append(r.commands, DrawCommand{Op: "setLineDash", Args: append([]float64{}, d...)})
}
func (r *Recorder) SetGlobalAlpha(a float64)      { r.emit("globalAlpha", a) }
func (r *Recorder) SetCompositeOp(op CompositeOp) { r.set("globalCompositeOperation", string(op)) }

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}
