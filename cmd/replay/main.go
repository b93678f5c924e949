// Command replay applies a JSON input script to a headless board and
// writes the result as PNG, JPEG or PDF.
//
//	replay -script drawing.json -out drawing.png
//	replay -script drawing.json -format pdf -out drawing.pdf
//	replay -script drawing.json -clipboard
//	replay -discover
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/atotto/clipboard"

	"github.com/noteboard/noteboard/internal/asset"
	"github.com/noteboard/noteboard/internal/board"
	"github.com/noteboard/noteboard/internal/discovery"
	"github.com/noteboard/noteboard/internal/export"
	"github.com/noteboard/noteboard/internal/render"
	"github.com/noteboard/noteboard/internal/replay"
)

func main() {
	var (
		scriptPath = flag.String("script", "-", "input script, - for stdin")
		outPath    = flag.String("out", "", "output file; empty writes nothing")
		format     = flag.String("format", "png", "export format: png, jpeg or pdf")
		quality    = flag.Float64("quality", export.DefaultQuality, "jpeg quality in (0, 1]")
		assetDir   = flag.String("assets", ".", "directory relative image sources resolve against")
		docPath    = flag.String("doc", "", "also write the resulting board document as JSON")
		toClip     = flag.Bool("clipboard", false, "copy the export as a data URL to the clipboard")
		discover   = flag.Bool("discover", false, "list noteboard servers on the local network and exit")
		timeout    = flag.Duration("timeout", 30*time.Second, "overall time limit")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if *discover {
		err := discovery.Browse(3*time.Second, func(addr string) { fmt.Println(addr) })
		if err != nil {
			fail(err)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, *timeout)
	defer cancelTimeout()

	f, err := export.ParseFormat(*format)
	if err != nil {
		fail(err)
	}
	script, err := readScript(*scriptPath)
	if err != nil {
		fail(err)
	}

	b, err := board.NewHeadless(script.Options,
		board.WithLoader(asset.NewMux(*assetDir)),
		board.WithFrameSource(render.NewManualSource()),
	)
	if err != nil {
		fail(err)
	}
	defer func() { _ = b.Dispose() }()

	if err := script.Run(ctx, b); err != nil {
		fail(err)
	}
	img, err := b.Snapshot()
	if err != nil {
		fail(err)
	}

	if *outPath != "" {
		data, err := export.Encode(img, f, *quality)
		if err != nil {
			fail(err)
		}
		if err := os.WriteFile(*outPath, data, 0o644); err != nil {
			fail(fmt.Errorf("write output: %w", err))
		}
		slog.Info("export written", "path", *outPath, "bytes", len(data))
	}

	if *toClip {
		url, err := export.DataURL(img, string(f), *quality)
		if err != nil {
			fail(err)
		}
		if err := clipboard.WriteAll(url); err != nil {
			fail(fmt.Errorf("copy to clipboard: %w", err))
		}
		slog.Info("data url copied to clipboard", "bytes", len(url))
	}

	if *docPath != "" {
		if err := writeDocument(b, *docPath); err != nil {
			fail(err)
		}
	}
}

func readScript(path string) (*replay.Script, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open script: %w", err)
		}
		defer f.Close()
		r = f
	}
	return replay.Parse(r)
}

func writeDocument(b *board.Board, path string) error {
	doc, err := b.Document()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func fail(err error) {
	slog.Error("replay failed", "error", err)
	os.Exit(1)
}
