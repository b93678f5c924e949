//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"syscall/js"
	"time"

	"github.com/noteboard/noteboard/internal/asset"
	"github.com/noteboard/noteboard/internal/board"
	"github.com/noteboard/noteboard/internal/document"
	"github.com/noteboard/noteboard/internal/geom"
	"github.com/noteboard/noteboard/internal/input"
	"github.com/noteboard/noteboard/internal/render"
	"github.com/noteboard/noteboard/internal/surface"
)

var (
	brd    *board.Board
	rec    *surface.Recorder
	frames *render.ManualSource
)

func main() {
	api := js.Global().Get("Object").New()

	// --- Lifecycle ---
	api.Set("create", js.FuncOf(create))
	api.Set("dispose", js.FuncOf(dispose))
	api.Set("tick", js.FuncOf(tick))
	api.Set("render", js.FuncOf(renderNow))
	api.Set("resize", js.FuncOf(resize))
	api.Set("onEvent", js.FuncOf(onEvent))

	// --- Input ---
	api.Set("pointer", js.FuncOf(pointer))
	api.Set("wheel", js.FuncOf(wheel))

	// --- Commands ---
	api.Set("setMode", js.FuncOf(setMode))
	api.Set("setStrokeColor", js.FuncOf(setStrokeColor))
	api.Set("setLineWidth", js.FuncOf(setLineWidth))
	api.Set("undo", js.FuncOf(undo))
	api.Set("redo", js.FuncOf(redo))
	api.Set("clear", js.FuncOf(clearBoard))
	api.Set("zoomIn", js.FuncOf(zoomIn))
	api.Set("zoomOut", js.FuncOf(zoomOut))
	api.Set("resetView", js.FuncOf(resetView))
	api.Set("addImage", js.FuncOf(addImage))
	api.Set("drawBackgroundImage", js.FuncOf(drawBackgroundImage))
	api.Set("clearBackgroundImage", js.FuncOf(clearBackgroundImage))
	api.Set("loadDocument", js.FuncOf(loadDocument))
	api.Set("loadSampleDocument", js.FuncOf(loadSampleDocument))

	// --- Queries ---
	api.Set("getDocument", js.FuncOf(getDocument))
	api.Set("getState", js.FuncOf(getState))
	api.Set("getImageInfo", js.FuncOf(getImageInfo))
	api.Set("export", js.FuncOf(exportBoard))

	js.Global().Set("noteboard", api)
	js.Global().Set("noteboardWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func ok() any { return js.ValueOf(map[string]any{"ok": true}) }

func fail(err error) any { return js.ValueOf(map[string]any{"error": err.Error()}) }

func missing(what string) any { return js.ValueOf(map[string]any{"error": "missing " + what}) }

func ready() bool { return brd != nil }

func result(err error) any {
	if err != nil {
		return fail(err)
	}
	return ok()
}

// create(optionsJSON?) builds a board that records draw commands. The page
// replays the commands returned by tick and render onto its canvas.
func create(this js.Value, args []js.Value) any {
	opts := board.DefaultOptions()
	if len(args) > 0 && args[0].Type() == js.TypeString {
		if err := json.Unmarshal([]byte(args[0].String()), &opts); err != nil {
			return fail(err)
		}
	}
	if brd != nil {
		_ = brd.Dispose()
	}

	rec = surface.NewRecorder(geom.Size{Width: opts.Width, Height: opts.Height}, opts.DPR)
	frames = render.NewManualSource()
	b, err := board.New(rec, opts,
		board.WithLoader(asset.NewMux("")),
		board.WithFrameSource(frames),
	)
	if err != nil {
		return fail(err)
	}
	brd = b
	return result(brd.Start())
}

func dispose(this js.Value, args []js.Value) any {
	if !ready() {
		return ok()
	}
	err := brd.Dispose()
	brd = nil
	return result(err)
}

// flush returns the commands recorded since the last call as JSON.
func flush() any {
	var cmds []surface.DrawCommand
	if err := brd.Locked(func() { cmds = rec.Flush() }); err != nil {
		return fail(err)
	}
	s, err := surface.DrawCommandsToJSON(cmds)
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(s)
}

// tick(nowMs) runs one frame and returns the draw commands to replay.
func tick(this js.Value, args []js.Value) any {
	if !ready() {
		return js.ValueOf("[]")
	}
	now := time.Now()
	if len(args) > 0 {
		now = time.UnixMilli(int64(args[0].Float()))
	}
	frames.Step(now)
	return flush()
}

func renderNow(this js.Value, args []js.Value) any {
	if !ready() {
		return js.ValueOf("[]")
	}
	if err := brd.RenderNow(); err != nil {
		return fail(err)
	}
	return flush()
}

func resize(this js.Value, args []js.Value) any {
	if !ready() || len(args) < 3 {
		return missing("width, height, dpr")
	}
	return result(brd.Resize(args[0].Float(), args[1].Float(), args[2].Float()))
}

// onEvent(fn) calls fn with each board event as JSON.
func onEvent(this js.Value, args []js.Value) any {
	if !ready() || len(args) < 1 || args[0].Type() != js.TypeFunction {
		return missing("callback")
	}
	fn := args[0]
	brd.On(func(e board.Event) {
		data, err := json.Marshal(e)
		if err != nil {
			return
		}
		fn.Invoke(string(data))
	})
	return ok()
}

func pointer(this js.Value, args []js.Value) any {
	if !ready() || len(args) < 1 {
		return missing("pointer event JSON")
	}
	var ev input.PointerEvent
	if err := json.Unmarshal([]byte(args[0].String()), &ev); err != nil {
		return fail(err)
	}
	return result(brd.HandlePointer(ev))
}

func wheel(this js.Value, args []js.Value) any {
	if !ready() || len(args) < 1 {
		return missing("wheel event JSON")
	}
	var ev input.WheelEvent
	if err := json.Unmarshal([]byte(args[0].String()), &ev); err != nil {
		return fail(err)
	}
	return result(brd.HandleWheel(ev))
}

func setMode(this js.Value, args []js.Value) any {
	if !ready() || len(args) < 1 {
		return missing("mode")
	}
	return result(brd.SetMode(board.Mode(args[0].String())))
}

func setStrokeColor(this js.Value, args []js.Value) any {
	if !ready() || len(args) < 1 {
		return missing("color")
	}
	return result(brd.SetStrokeColor(args[0].String()))
}

func setLineWidth(this js.Value, args []js.Value) any {
	if !ready() || len(args) < 1 {
		return missing("width")
	}
	return result(brd.SetLineWidth(args[0].Float()))
}

func undo(this js.Value, args []js.Value) any {
	if !ready() {
		return missing("board")
	}
	changed, err := brd.Undo()
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(changed)
}

func redo(this js.Value, args []js.Value) any {
	if !ready() {
		return missing("board")
	}
	changed, err := brd.Redo()
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(changed)
}

func clearBoard(this js.Value, args []js.Value) any {
	if !ready() {
		return missing("board")
	}
	return result(brd.Clear())
}

func zoomIn(this js.Value, args []js.Value) any {
	if !ready() {
		return missing("board")
	}
	return result(brd.ZoomIn())
}

func zoomOut(this js.Value, args []js.Value) any {
	if !ready() {
		return missing("board")
	}
	return result(brd.ZoomOut())
}

func resetView(this js.Value, args []js.Value) any {
	if !ready() {
		return missing("board")
	}
	return result(brd.ResetView())
}

// addImage(src, x, y, width?, height?)
func addImage(this js.Value, args []js.Value) any {
	if !ready() || len(args) < 3 {
		return missing("src, x, y")
	}
	var w, h float64
	if len(args) >= 5 {
		w, h = args[3].Float(), args[4].Float()
	}
	id, err := brd.AddImage(context.Background(), args[0].String(), geom.Pt(args[1].Float(), args[2].Float()), w, h)
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(map[string]any{"id": id})
}

// drawBackgroundImage(src, fit?)
func drawBackgroundImage(this js.Value, args []js.Value) any {
	if !ready() || len(args) < 1 {
		return missing("src")
	}
	fit := ""
	if len(args) > 1 {
		fit = args[1].String()
	}
	return result(brd.DrawBackgroundImage(context.Background(), args[0].String(), document.Fit(fit)))
}

func clearBackgroundImage(this js.Value, args []js.Value) any {
	if !ready() {
		return missing("board")
	}
	return result(brd.ClearBackgroundImage())
}

func loadDocument(this js.Value, args []js.Value) any {
	if !ready() || len(args) < 1 {
		return missing("document JSON")
	}
	doc, err := document.Parse([]byte(args[0].String()))
	if err != nil {
		return fail(err)
	}
	return result(brd.LoadDocument(context.Background(), doc))
}

func loadSampleDocument(this js.Value, args []js.Value) any {
	if !ready() {
		return missing("board")
	}
	return result(brd.LoadDocument(context.Background(), document.NewSampleDocument("local")))
}

func getDocument(this js.Value, args []js.Value) any {
	if !ready() {
		return missing("board")
	}
	doc, err := brd.Document()
	if err != nil {
		return fail(err)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(string(data))
}

func getState(this js.Value, args []js.Value) any {
	if !ready() {
		return missing("board")
	}
	vp := brd.Viewport()
	return js.ValueOf(map[string]any{
		"mode":    string(brd.Mode()),
		"cursor":  brd.Cursor(),
		"canUndo": brd.CanUndo(),
		"canRedo": brd.CanRedo(),
		"zoom":    vp.Zoom,
		"panX":    vp.PanX,
		"panY":    vp.PanY,
	})
}

func getImageInfo(this js.Value, args []js.Value) any {
	if !ready() {
		return missing("board")
	}
	info, err := brd.ImageInfo()
	if err != nil {
		return fail(err)
	}
	data, err := json.Marshal(info)
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(string(data))
}

// export(format?, quality?) returns a data URL.
func exportBoard(this js.Value, args []js.Value) any {
	if !ready() {
		return missing("board")
	}
	format, quality := "png", 0.0
	if len(args) > 0 {
		format = args[0].String()
	}
	if len(args) > 1 {
		quality = args[1].Float()
	}
	url, err := brd.Export(context.Background(), format, quality)
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(url)
}
