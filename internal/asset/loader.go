// Package asset loads and stores the bitmaps boards draw: image shapes and
// background underlays. Sources may be data URLs, http(s) URLs, or files
// under the asset directory.
package asset

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// MaxImageSize bounds how many bytes a single image source may supply.
const MaxImageSize = 10 << 20

// MaxImageDimension bounds the declared width and height of a decoded image.
const MaxImageDimension = 8192

var (
	ErrUnsupportedSource = errors.New("unsupported image source")
	ErrTooLarge          = errors.New("image too large")
	ErrOutsideAssetDir   = errors.New("path escapes asset directory")
	ErrHostNotAllowed    = errors.New("image host not allowed")
)

// Decode decodes a PNG, JPEG, GIF, BMP or WebP image. The header is read
// first so oversized images are rejected before any pixels are allocated.
func Decode(r io.Reader) (image.Image, string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}
	if len(data) > MaxImageSize {
		return nil, "", ErrTooLarge
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	if cfg.Width > MaxImageDimension || cfg.Height > MaxImageDimension {
		return nil, "", fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return img, format, nil
}

func decodeBytes(data []byte) (image.Image, error) {
	img, _, err := Decode(bytes.NewReader(data))
	return img, err
}

// DataURLLoader decodes images embedded in data: URLs.
type DataURLLoader struct{}

func (DataURLLoader) Load(_ context.Context, src string) (image.Image, error) {
	data, err := ParseDataURL(src)
	if err != nil {
		return nil, err
	}
	return decodeBytes(data)
}

// ParseDataURL returns the payload of a data: URL, base64 or percent encoded.
func ParseDataURL(src string) ([]byte, error) {
	rest, ok := strings.CutPrefix(src, "data:")
	if !ok {
		return nil, fmt.Errorf("%w: not a data URL", ErrUnsupportedSource)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fmt.Errorf("%w: malformed data URL", ErrUnsupportedSource)
	}
	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("decode data URL: %w", err)
		}
		return data, nil
	}
	text, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data URL: %w", err)
	}
	return []byte(text), nil
}

// HTTPLoader fetches images over http or https. A non-empty Hosts limits
// fetches to those host names.
type HTTPLoader struct {
	Client *http.Client
	Hosts  []string
}

// Check reports whether src may be fetched.
func (l HTTPLoader) Check(src string) error {
	u, err := url.Parse(src)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%w: %s", ErrUnsupportedSource, src)
	}
	if len(l.Hosts) == 0 {
		return nil
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range l.Hosts {
		if strings.ToLower(strings.TrimSpace(h)) == host {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrHostNotAllowed, host)
}

func (l HTTPLoader) Load(ctx context.Context, src string) (image.Image, error) {
	if err := l.Check(src); err != nil {
		return nil, err
	}
	client := l.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image: unexpected status %d", resp.StatusCode)
	}
	if resp.ContentLength > MaxImageSize {
		return nil, ErrTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return decodeBytes(data)
}

// FileLoader reads images from a directory. Sources may be bare names,
// "/assets/<name>" paths as returned by the upload handler, or file:// URLs.
type FileLoader struct {
	Dir string
}

func (l FileLoader) Load(ctx context.Context, src string) (image.Image, error) {
	path, err := l.resolve(src)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, _, err := Decode(f)
	return img, err
}

func (l FileLoader) resolve(src string) (string, error) {
	name := strings.TrimPrefix(src, "file://")
	name = strings.TrimPrefix(name, "/assets/")
	root, err := filepath.Abs(l.Dir)
	if err != nil {
		return "", fmt.Errorf("resolve asset dir: %w", err)
	}
	path := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideAssetDir, src)
	}
	return path, nil
}

// Mux dispatches to a loader by source scheme. A nil HTTP loader rejects
// http(s) URLs and a nil Files loader rejects plain paths.
type Mux struct {
	Data  DataURLLoader
	HTTP  *HTTPLoader
	Files *FileLoader
}

// NewMux creates a loader for data URLs, http(s) URLs from any host, and
// files under dir. An empty dir disables file sources.
func NewMux(dir string) *Mux {
	m := &Mux{HTTP: &HTTPLoader{}}
	if dir != "" {
		m.Files = &FileLoader{Dir: dir}
	}
	return m
}

// RestrictHosts limits http(s) sources to hosts. No hosts disables them.
func (m *Mux) RestrictHosts(hosts []string) *Mux {
	if len(hosts) == 0 {
		m.HTTP = nil
		return m
	}
	l := HTTPLoader{Hosts: hosts}
	if m.HTTP != nil {
		l.Client = m.HTTP.Client
	}
	m.HTTP = &l
	return m
}

func isRemote(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// Check reports whether Load would accept src without loading it.
func (m *Mux) Check(src string) error {
	switch {
	case src == "":
		return fmt.Errorf("%w: empty source", ErrUnsupportedSource)
	case strings.HasPrefix(src, "data:"):
		return nil
	case isRemote(src):
		if m.HTTP == nil {
			return fmt.Errorf("%w: %s", ErrHostNotAllowed, src)
		}
		return m.HTTP.Check(src)
	case m.Files != nil:
		_, err := m.Files.resolve(src)
		return err
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedSource, src)
}

func (m *Mux) Load(ctx context.Context, src string) (image.Image, error) {
	if err := m.Check(src); err != nil {
		return nil, err
	}
	switch {
	case strings.HasPrefix(src, "data:"):
		return m.Data.Load(ctx, src)
	case isRemote(src):
		return m.HTTP.Load(ctx, src)
	}
	return m.Files.Load(ctx, src)
}
