package avatargen

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/oxtoacart/bpool"
	"github.com/rs/zerolog"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers"
	"golang.org/x/crypto/blake2b"
)

// ErrRoomExhausted is returned when a growth step runs out of attempts. The whole
// avatar is thrown away when that happens.
var ErrRoomExhausted = errors.New("ran out of room to grow the mosaic")

type Config struct {
	Width  float64
	Height float64
	// Growth stops once the mosaic has this many planes (background included).
	TargetPlanes int
	// Attempt budget for each growth step.
	MaxAttempts      int
	MinSide          float64
	MaxSide          float64
	BackgroundColour int
	Palette          Palette
}

func DefaultConfig() Config {
	return Config{
		Width:            252,
		Height:           252,
		TargetPlanes:     24,
		MaxAttempts:      100,
		MinSide:          12,
		MaxSide:          84,
		BackgroundColour: 0,
		Palette:          DefaultPalette,
	}
}

func (c Config) Validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("canvas must have a positive size, got %vx%v", c.Width, c.Height)
	case c.TargetPlanes < 1:
		return fmt.Errorf("target plane count must be at least 1, got %d", c.TargetPlanes)
	case c.MaxAttempts < 1:
		return fmt.Errorf("attempt budget must be at least 1, got %d", c.MaxAttempts)
	case c.MinSide <= 0 || c.MinSide > c.MaxSide:
		return fmt.Errorf("need 0 < min side <= max side, got %v and %v", c.MinSide, c.MaxSide)
	}
	return c.Palette.Validate()
}

// NewRand returns the generator every random choice of an avatar is drawn from. The
// same seed always gives the same avatar.
func NewRand(seed string) *rand.Rand {
	sum := blake2b.Sum256([]byte(seed))
	return rand.New(rand.NewPCG(
		binary.LittleEndian.Uint64(sum[0:8]),
		binary.LittleEndian.Uint64(sum[8:16]),
	))
}

type Generator struct {
	Config  Config
	logger  zerolog.Logger
	bufpool *bpool.BufferPool
}

func NewGenerator(cfg Config, logger zerolog.Logger) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid avatar config: %w", err)
	}
	return &Generator{
		Config:  cfg,
		logger:  logger,
		bufpool: bpool.NewBufferPool(8),
	}, nil
}

func (g *Generator) canvasSize() Canvas {
	return Canvas{Width: g.Config.Width, Height: g.Config.Height}
}

// Grow builds the mosaic: the background plane, then one square per step until there
// are Config.TargetPlanes planes.
func (g *Generator) Grow(rng *rand.Rand) ([]*Plane, error) {
	bounds := g.canvasSize()
	planes := []*Plane{SeedBackground(bounds.Width, bounds.Height, g.Config.BackgroundColour)}
	growCfg := GrowConfig{
		MinSide:     g.Config.MinSide,
		MaxSide:     g.Config.MaxSide,
		MaxAttempts: g.Config.MaxAttempts,
		Palette:     g.Config.Palette,
		Logger:      &g.logger,
	}
	for step := 1; len(planes) < g.Config.TargetPlanes; step++ {
		switch outcome := GrowSquare(rng, bounds, planes, growCfg).(type) {
		case Grown:
			planes = ReplacePlane(planes, outcome)
		case Exhausted:
			return nil, fmt.Errorf("step %d gave up after %d attempts: %w", step, outcome.Attempts, ErrRoomExhausted)
		}
	}
	return planes, nil
}

func planePath(p *Plane) *canvas.Path {
	path := &canvas.Path{}
	path.MoveTo(p.Points[0].X, p.Points[0].Y)
	for _, pt := range p.Points[1:] {
		path.LineTo(pt.X, pt.Y)
	}
	path.Close()
	return path
}

// Render fills every plane in order, so later planes end up on top.
func (g *Generator) Render(planes []*Plane) *canvas.Canvas {
	c := canvas.New(g.Config.Width, g.Config.Height)
	ctx := canvas.NewContext(c)
	ctx.SetStrokeColor(canvas.Transparent)
	for _, p := range planes {
		ctx.SetFillColor(g.Config.Palette.Color(p.Colour))
		ctx.DrawPath(0, 0, planePath(p))
	}
	return c
}

func (g *Generator) EncodePNG(planes []*Plane, w io.Writer) error {
	pngWriter := renderers.PNG()
	return pngWriter(w, g.Render(planes))
}

// GenerateAvatar grows a mosaic, writes it to <filePath>/<fileName>_default.png and
// returns the PNG bytes too, so the caller can upload them without reading the file
// back. If the mosaic can't be grown, nothing is written and the error wraps
// ErrRoomExhausted.
func (g *Generator) GenerateAvatar(rng *rand.Rand, fileName, filePath string) ([]byte, error) {
	planes, err := g.Grow(rng)
	if err != nil {
		g.logger.Warn().Err(err).Str("file", fileName).Msg("avatar generation aborted")
		return nil, err
	}
	buf := g.bufpool.Get()
	defer g.bufpool.Put(buf)
	if err := g.EncodePNG(planes, buf); err != nil {
		return nil, fmt.Errorf("couldn't encode avatar: %w", err)
	}
	outPath := filepath.Join(filePath, fileName+"_default.png")
	if err := writeFileAtomic(outPath, buf.Bytes()); err != nil {
		return nil, err
	}
	g.logger.Info().Str("path", outPath).Int("planes", len(planes)).Msg("avatar written")
	return bytes.Clone(buf.Bytes()), nil
}

// writeFileAtomic writes to a temp file next to path and renames it into place, so a
// failed write never leaves half a PNG behind.
func writeFileAtomic(path string, contents []byte) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			os.Remove(f.Name())
		}
	}()
	if _, err = f.Write(contents); err != nil {
		f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

// GenerateAvatarPNG grows a mosaic with the default config and writes the PNG to w.
func GenerateAvatarPNG(w io.Writer, seed string) error {
	g, err := NewGenerator(DefaultConfig(), zerolog.Nop())
	if err != nil {
		return err
	}
	planes, err := g.Grow(NewRand(seed))
	if err != nil {
		return err
	}
	return g.EncodePNG(planes, w)
}
