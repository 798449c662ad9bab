// Command capturedemo records an animated scene and saves a PNG still and a
// GIF of the last frames.
package main

import (
	"context"
	"flag"
	"image/color"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/chewxy/math32"

	"github.com/gogpu/capture"
	"github.com/gogpu/capture/camera"
	"github.com/gogpu/capture/render"
)

func main() {
	var (
		configPath = flag.String("config", "", "TOML configuration file")
		width      = flag.Int("width", 160, "camera width")
		height     = flag.Int("height", 120, "camera height")
		frames     = flag.Int("frames", 90, "frames to render")
		fps        = flag.Int("fps", 30, "simulated frame rate")
		window     = flag.Duration("window", 2*time.Second, "animation window")
		output     = flag.String("output", "", "output directory (overrides config)")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	capture.SetLogger(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := capture.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = capture.LoadConfig(*configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if *output != "" {
		cfg.OutputDir = *output
	}

	scene := camera.NewMemScene()
	w, h := float32(*width), float32(*height)
	cam := scene.Add(camera.Geometry{
		Transform:  camera.Identity(),
		Projection: camera.Orthographic{Left: -w / 2, Right: w / 2, Bottom: -h / 2, Top: h / 2, Far: 1000, Scale: 1},
	})

	c, err := capture.New(cfg, capture.PixmapHost(scene, cfg))
	if err != nil {
		log.Fatalf("Failed to create capture: %v", err)
	}

	const id capture.ID = 1
	started := c.StartTracking(capture.StartTracking{Camera: cam, ID: id, Window: *window})

	ctx := context.Background()
	dt := time.Second / time.Duration(max(*fps, 1))
	for i := 0; i < *frames; i++ {
		for _, rc := range scene.Recorders() {
			if t, ok := rc.Target.(*render.PixmapTarget); ok {
				drawFrame(t, i)
			}
		}
		c.RenderPhase(ctx)
		c.Update(dt)
		if i == 0 {
			if o := started.Wait(); o.Err != nil {
				log.Fatalf("Failed to start tracking: %v", o.Err)
			}
		}
	}

	still := c.CapturePNG(id, "")
	anim := c.CaptureAnimation(capture.CaptureAnimation{ID: id, Path: "capture.gif", Then: capture.Stop})
	c.Update(dt)

	for _, tk := range []capture.Ticket{still, anim} {
		o := tk.Wait()
		if o.Err != nil {
			log.Printf("%s capture failed: %v", o.Kind, o.Err)
			continue
		}
		log.Printf("%s saved to %s", o.Kind, o.Path)
	}

	if err := c.Close(ctx); err != nil {
		log.Fatalf("Failed to close: %v", err)
	}
}

// drawFrame paints a gradient background and a square orbiting the centre.
func drawFrame(t *render.PixmapTarget, i int) {
	w, h := t.Width(), t.Height()
	if w == 0 || h == 0 {
		return
	}
	for y := 0; y < h; y++ {
		v := uint8(40 + 120*y/h)
		t.FillRect(0, y, w, y+1, color.RGBA{R: 20, G: v / 2, B: v, A: 255})
	}

	angle := float32(i) * 2 * math32.Pi / 60
	r := float32(min(w, h)) / 3
	cx := float32(w)/2 + r*math32.Cos(angle)
	cy := float32(h)/2 + r*math32.Sin(angle)
	size := max(min(w, h)/8, 2)
	x, y := int(cx)-size/2, int(cy)-size/2
	t.FillRect(x, y, x+size, y+size, color.RGBA{R: 255, G: 200, A: 255})
}
