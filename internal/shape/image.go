package shape

import (
	"context"
	"image"
	"log/slog"
	"sync"

	"github.com/noteboard/noteboard/internal/surface"
)

// LoadState is the render state of an image shape.
type LoadState int

const (
	StateLoading LoadState = iota
	StateLoaded
	StateError
)

func (s LoadState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Loader decodes an image from a source string (path, URL, data URL).
type Loader interface {
	Load(ctx context.Context, src string) (image.Image, error)
}

// ImageSource holds the asynchronous load state of one image shape.
// A failed load is terminal; the completion callback fires at most once.
type ImageSource struct {
	src string

	mu     sync.Mutex
	state  LoadState
	bitmap *surface.Bitmap
	err    error

	start sync.Once
	done  sync.Once
}

// NewImageSource returns a source in the loading state.
func NewImageSource(src string) *ImageSource {
	return &ImageSource{src: src}
}

// Src returns the source string.
func (s *ImageSource) Src() string { return s.src }

// State returns the current load state.
func (s *ImageSource) State() LoadState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Bitmap returns the decoded image, or nil unless loaded.
func (s *ImageSource) Bitmap() *surface.Bitmap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bitmap
}

// Err returns the load error, if any.
func (s *ImageSource) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// NaturalSize returns the decoded pixel size, or ok=false if not loaded.
func (s *ImageSource) NaturalSize() (w, h float64, ok bool) {
	bm := s.Bitmap()
	if bm == nil {
		return 0, 0, false
	}
	b := bm.Bounds()
	return float64(b.Dx()), float64(b.Dy()), true
}

// Load starts decoding in a goroutine. Only the first call has any
// effect. onDone is invoked once the source reaches a final state.
func (s *ImageSource) Load(ctx context.Context, l Loader, onDone func()) {
	s.start.Do(func() {
		go func() {
			img, err := l.Load(ctx, s.src)
			s.Resolve(img, err, onDone)
		}()
	})
}

// Resolve records the outcome of a load. Later calls are ignored, so the
// state cannot flip back from error to loaded.
func (s *ImageSource) Resolve(img image.Image, err error, onDone func()) {
	s.done.Do(func() {
		s.mu.Lock()
		switch {
		case err != nil:
			s.state, s.err = StateError, err
			slog.Warn("image load failed", "src", s.src, "error", err)
		case img == nil:
			s.state = StateError
		default:
			s.state = StateLoaded
			s.bitmap = &surface.Bitmap{Image: img, Src: s.src}
		}
		s.mu.Unlock()

		if onDone != nil {
			onDone()
		}
	})
}
