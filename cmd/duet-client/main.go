package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwrk-planet/duet/internal/client"
	"github.com/cwrk-planet/duet/internal/domain"
	"github.com/cwrk-planet/duet/internal/logger"
	"github.com/cwrk-planet/duet/internal/render"
)

// duet-client is a headless participant: it joins, readies up, draws a
// random walk while the session runs and saves the merged picture.
func main() {
	url := flag.String("url", "ws://localhost:8080/ws", "room websocket url")
	name := flag.String("name", "", "display name")
	city := flag.String("city", "", "city shown to the partner")
	out := flag.String("out", "duet.png", "merged artifact path")
	width := flag.Int("width", 600, "canvas width")
	height := flag.Int("height", 400, "canvas height")
	every := flag.Duration("every", 40*time.Millisecond, "delay between strokes")
	seed := flag.Uint64("seed", uint64(time.Now().UnixNano()), "random seed")
	flag.Parse()

	logger.Init(logger.Config{Service: "duet-client", Env: logger.DetectEnv()})
	lg := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := client.Dial(ctx, *url)
	if err != nil {
		log.Fatalf("dial %s: %v", *url, err)
	}

	profile := domain.Profile{DisplayName: *name}
	if *city != "" {
		profile.City = city
	}

	board := render.NewBoard(*width, *height)
	cl := client.New(conn, board, profile, lg)
	walker := newWalker(rand.New(rand.NewPCG(*seed, *seed>>1)), *width, *height)

	var drawCancel context.CancelFunc
	cl.OnState = func(_, next client.State, s *client.Session) {
		switch next {
		case client.StateWaitingForPartner, client.StateReadyPending:
			if s.Ready() {
				return
			}
			go func() {
				err := cl.Do(ctx, func(s *client.Session) error {
					if s.Ready() {
						return nil
					}
					return s.SetReady(true)
				})
				if err != nil {
					lg.Warn("set ready failed", "err", err)
				}
			}()
		case client.StateDrawing:
			var dctx context.Context
			dctx, drawCancel = context.WithCancel(ctx)
			go walker.run(dctx, cl, *every)
		case client.StateSessionEnded:
			if drawCancel != nil {
				drawCancel()
			}
			if err := render.SavePNG(*out, s.Artifact()); err != nil {
				lg.Error("save artifact failed", "err", err)
			} else {
				lg.Info("artifact saved", "path", *out, "role", s.Role())
			}
			stop()
		}
	}

	if err := cl.Run(ctx); err != nil {
		if errors.Is(err, domain.ErrRoomFull) {
			lg.Warn("room is full")
			os.Exit(2)
		}
		log.Fatalf("client: %v", err)
	}
}

// walker produces a smooth random walk of brush segments.
type walker struct {
	rnd     *rand.Rand
	w, h    float64
	x, y    float64
	heading float64
	color   [3]uint8
}

func newWalker(rnd *rand.Rand, w, h int) *walker {
	return &walker{
		rnd:     rnd,
		w:       float64(w),
		h:       float64(h),
		x:       float64(w) / 2,
		y:       float64(h) / 2,
		heading: rnd.Float64() * 2 * math.Pi,
		color:   [3]uint8{uint8(rnd.IntN(256)), uint8(rnd.IntN(256)), uint8(rnd.IntN(256))},
	}
}

func (w *walker) next() domain.DrawingOperation {
	w.heading += (w.rnd.Float64() - 0.5) * 0.8
	step := 6 + w.rnd.Float64()*10
	nx := w.x + math.Cos(w.heading)*step
	ny := w.y + math.Sin(w.heading)*step

	// отражение от краёв холста
	if nx < 0 || nx > w.w {
		w.heading = math.Pi - w.heading
		nx = math.Max(0, math.Min(w.w, nx))
	}
	if ny < 0 || ny > w.h {
		w.heading = -w.heading
		ny = math.Max(0, math.Min(w.h, ny))
	}

	op := domain.DrawingOperation{
		FromX: w.x, FromY: w.y, ToX: nx, ToY: ny,
		Tool:    domain.ToolBrush,
		Size:    2 + w.rnd.Float64()*8,
		Color:   w.color,
		Opacity: 120 + w.rnd.IntN(136),
	}
	if w.rnd.IntN(40) == 0 {
		op.Tool = domain.ToolEraser
		op.Size = 12
	}
	if w.rnd.IntN(25) == 0 {
		w.color = [3]uint8{uint8(w.rnd.IntN(256)), uint8(w.rnd.IntN(256)), uint8(w.rnd.IntN(256))}
	}
	w.x, w.y = nx, ny
	return op
}

func (w *walker) run(ctx context.Context, cl *client.Client, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := cl.Draw(ctx, w.next()); err != nil {
				return
			}
		}
	}
}
