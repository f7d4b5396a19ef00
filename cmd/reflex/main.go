// Command reflex runs the reaction-time tester against a simulated front
// panel: the LCD and LED bank print to the terminal and the two buttons are
// driven by console lines.
//
//	s  press and release START
//	h  hold START down
//	u  let START up
//	r  press and release RESTART
//	q  quit
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/comalice/reflex/internal/config"
	"github.com/comalice/reflex/internal/game"
	"github.com/comalice/reflex/internal/hw"
	"github.com/comalice/reflex/internal/lcd"
	"github.com/comalice/reflex/internal/logger"
	"github.com/comalice/reflex/internal/metrics"
	"github.com/comalice/reflex/internal/source"
	"github.com/comalice/reflex/internal/store"
)

// tapHold keeps a tapped button down long enough for the tick handler to poll it.
const tapHold = 50 * time.Millisecond

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	dot := flag.Bool("dot", false, "print the game chart as Graphviz DOT and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger.Init(cfg.Log.Level, cfg.Log.JSON)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdin, os.Stdout, *dot); err != nil {
		logger.Fatal("reflex stopped", "error", err)
	}
}

type panel struct {
	leds    *hw.LEDBank
	start   *hw.Button
	restart *hw.Button
}

func run(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer, dot bool) error {
	log := logger.Get()
	out = &lockedWriter{w: out}

	st, err := store.Open(cfg.Store.Path, cfg.Store.Format)
	if err != nil {
		return err
	}
	best, err := st.Load(ctx)
	if err != nil {
		log.Warn("best time unreadable, starting without one", "path", st.Path(), "error", err)
		best = game.NoBestTime
	}

	p := panel{
		leds:    hw.NewLEDBank(),
		start:   hw.NewButton("start"),
		restart: hw.NewButton("restart"),
	}
	g, err := game.New(p.leds, p.start, p.restart, game.WithBestTime(best))
	if err != nil {
		return fmt.Errorf("build game: %w", err)
	}
	if dot {
		_, err := io.WriteString(out, g.DOT())
		return err
	}

	var screen io.Writer
	if cfg.Display.Echo {
		screen = out
	}
	rec := metrics.New()
	if best != game.NoBestTime {
		rec.BestTime(best)
	}
	ctrl := game.NewController(g, lcd.NewPanel(screen), st,
		game.WithLogger(log),
		game.WithRecorder(rec),
		game.WithIdleBackoff(cfg.IdleBackoff),
	)

	log.Info("reflex ready", "store", st.Path(), "tick", cfg.TickInterval)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go readLines(in, lines)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return source.NewTicker(cfg.TickInterval, g).Run(ctx) })
	eg.Go(func() error { return source.NewEdges(p.start, g).Run(ctx) })
	eg.Go(func() error { return ctrl.Run(ctx) })
	eg.Go(func() error { return showLEDs(ctx, p.leds, out) })
	eg.Go(func() error {
		defer cancel()
		return console(ctx, lines, p)
	})

	err = eg.Wait()
	logSummary(rec)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func readLines(in io.Reader, lines chan<- string) {
	defer close(lines)
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		lines <- sc.Text()
	}
}

// console turns typed commands into button activity. It returns nil on q or
// end of input.
func console(ctx context.Context, lines <-chan string, p panel) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			switch strings.TrimSpace(line) {
			case "s":
				tap(p.start)
			case "h":
				p.start.Press()
			case "u":
				p.start.Release()
			case "r":
				tap(p.restart)
			case "q":
				return nil
			case "":
			default:
				logger.Get().Warn("unknown command", "line", line)
			}
		}
	}
}

func tap(b *hw.Button) {
	b.Press()
	time.AfterFunc(tapHold, b.Release)
}

func showLEDs(ctx context.Context, leds *hw.LEDBank, out io.Writer) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case pat := <-leds.Changes():
			if _, err := fmt.Fprintf(out, "LEDs [%s]\n", hw.FormatPattern(pat)); err != nil {
				return err
			}
		}
	}
}

func logSummary(rec *metrics.Recorder) {
	names, values, err := rec.Summary()
	if err != nil {
		logger.Get().Warn("metrics unavailable", "error", err)
		return
	}
	args := make([]any, 0, 2*len(names))
	for i, n := range names {
		args = append(args, n, values[i])
	}
	logger.Get().Info("session summary", args...)
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(b []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(b)
}
