package config

import (
	"strings"

	"github.com/kelseyhightower/envconfig"

	"github.com/noteboard/noteboard/internal/board"
	"github.com/noteboard/noteboard/internal/surface"
)

type Config struct {
	Port           int    `envconfig:"PORT" default:"8080"`
	DatabaseURL    string `envconfig:"DATABASE_URL"`
	JWTSecret      string `envconfig:"JWT_SECRET" default:"dev-secret-change-in-production"`
	AssetDir       string `envconfig:"ASSET_DIR" default:"./data/assets"`
	AllowedOrigins string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	MDNSEnable     bool   `envconfig:"MDNS_ENABLE" default:"false"`
	RenderFPS      int    `envconfig:"RENDER_FPS" default:"30"`

	// ImageHosts lists the hosts clients may load http(s) images from.
	// Empty disables remote images.
	ImageHosts []string `envconfig:"IMAGE_HOSTS"`

	Board BoardDefaults `envconfig:"BOARD"`
}

// BoardDefaults configures boards opened by the server. Variables are
// prefixed BOARD_, e.g. BOARD_LINE_WIDTH.
type BoardDefaults struct {
	Width           float64 `envconfig:"WIDTH" default:"800"`
	Height          float64 `envconfig:"HEIGHT" default:"600"`
	DPR             float64 `envconfig:"DPR" default:"1"`
	MinZoom         float64 `envconfig:"MIN_ZOOM" default:"0.1"`
	MaxZoom         float64 `envconfig:"MAX_ZOOM" default:"10"`
	StrokeStyle     string  `envconfig:"STROKE_STYLE" default:"#000000"`
	LineWidth       float64 `envconfig:"LINE_WIDTH" default:"2"`
	LineCap         string  `envconfig:"LINE_CAP" default:"round"`
	BackgroundColor string  `envconfig:"BACKGROUND_COLOR"`
	EnableRightDrag bool    `envconfig:"ENABLE_RIGHT_DRAG" default:"true"`
	EraseComposite  string  `envconfig:"ERASE_COMPOSITE" default:"destination-out"`
	DoubleBuffer    bool    `envconfig:"DOUBLE_BUFFER" default:"false"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Origins splits AllowedOrigins on commas.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Options converts the defaults into board options.
func (d BoardDefaults) Options() board.Options {
	opts := board.DefaultOptions()
	opts.Width = d.Width
	opts.Height = d.Height
	opts.DPR = d.DPR
	opts.MinZoom = d.MinZoom
	opts.MaxZoom = d.MaxZoom
	opts.StrokeStyle = d.StrokeStyle
	opts.LineWidth = d.LineWidth
	opts.LineCap = d.LineCap
	opts.BackgroundColor = d.BackgroundColor
	opts.EnableRightDrag = d.EnableRightDrag
	opts.EraseComposite = surface.CompositeOp(d.EraseComposite)
	opts.DoubleBuffer = d.DoubleBuffer
	return opts
}
