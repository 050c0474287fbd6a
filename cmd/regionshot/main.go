// The regionshot command captures a region of a web page as one png.
//
// By default it opens a visible browser, the user drags over the page to
// select the region, pressing Escape cancels. Other modes:
//
//	regionshot -url https://example.com -region 0,0,1280,5000
//	regionshot -batch jobs.yml
//	regionshot -serve :7318 -url https://example.com
//
// The options of the regionshot env var are also read from the .env file, see lib/defaults.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/go-rod/regionshot"
	"github.com/go-rod/regionshot/lib/defaults"
	"github.com/go-rod/regionshot/lib/history"
	"github.com/go-rod/regionshot/lib/jobs"
	"github.com/go-rod/regionshot/lib/server"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/joho/godotenv"
	"github.com/ysmood/leakless"
)

var (
	flagURL     = flag.String("url", "about:blank", "the page to open")
	flagRegion  = flag.String("region", "", "capture without interaction, x,y,width,height in device pixels of the document")
	flagAt      = flag.String("at", "", "the viewport point x,y to find the scrolling element for -region")
	flagBatch   = flag.String("batch", "", "the yaml file of the jobs to run")
	flagServe   = flag.String("serve", "", "serve the http api on the address, such as :7318")
	flagEnv     = flag.String("env", ".env", "the dotenv file to load")
	flagHistory = flag.String("history", "", "the sqlite file to record the captures in")
)

var logger = log.New(os.Stdout, "[regionshot] ", log.LstdFlags)

func main() {
	flag.Parse()

	// a missing file is fine
	_ = godotenv.Load(*flagEnv)
	defaults.ResetWithEnv()

	if os.Getpid() == 1 {
		runReaper()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Println(err)
		stop()
		os.Exit(1)
	}
}

type app struct {
	ctx     context.Context
	browser *rod.Browser
	history *history.History
	saver   regionshot.Dir
}

func run(ctx context.Context) error {
	interactive := *flagRegion == "" && *flagBatch == "" && *flagServe == ""

	browser, cleanup, err := connect(ctx, defaults.Show || interactive)
	if err != nil {
		return err
	}
	defer cleanup()

	a := &app{ctx: ctx, browser: browser, saver: regionshot.Dir(defaults.Dir)}

	if *flagHistory != "" {
		a.history, err = history.Open(*flagHistory)
		if err != nil {
			return err
		}
		defer func() { _ = a.history.Close() }()
	}

	switch {
	case *flagBatch != "":
		return a.batch(*flagBatch)
	case *flagServe != "":
		return a.serve(*flagServe, *flagURL)
	case *flagRegion != "":
		return a.region(*flagURL, *flagRegion, *flagAt)
	default:
		return a.interactive(*flagURL)
	}
}

// connect to the remote browser of defaults.URL or launch a local one
func connect(ctx context.Context, show bool) (*rod.Browser, func(), error) {
	u := defaults.URL
	cleanup := func() {}

	if u == "" {
		l := launcher.New().Headless(!show).Leakless(leakless.Support())
		if defaults.Bin != "" {
			l = l.Bin(defaults.Bin)
		}

		var err error
		u, err = l.Launch()
		if err != nil {
			return nil, nil, err
		}
		cleanup = l.Kill
	} else {
		var err error
		u, err = launcher.ResolveURL(u)
		if err != nil {
			return nil, nil, err
		}
	}

	browser := rod.New().Context(ctx).ControlURL(u)
	if err := browser.Connect(); err != nil {
		cleanup()
		return nil, nil, err
	}

	return browser, func() {
		_ = browser.Close()
		cleanup()
	}, nil
}

func (a *app) page(ctx context.Context, url string) (*rod.Page, error) {
	var page *rod.Page
	var err error

	if defaults.Stealth {
		page, err = stealth.Page(a.browser)
		if err == nil {
			err = page.Navigate(url)
		}
	} else {
		page, err = a.browser.Page(proto.TargetCreateTarget{URL: url})
	}
	if err != nil {
		return nil, err
	}

	return page, page.Context(ctx).WaitLoad()
}

func (a *app) shooter(page *rod.Page) *regionshot.Shooter {
	tab := regionshot.NewTab(page)
	return regionshot.New(tab, tab, a.saver).Context(a.ctx).Logger(logger)
}

func (a *app) record(url string, res *regionshot.Result) {
	logger.Println("saved", a.saver.Path(res.Name), res.Selection, "frames:", res.Frames)

	if a.history == nil {
		return
	}

	err := a.history.Record(a.ctx, &history.Capture{
		Name:   res.Name,
		URL:    url,
		X:      res.Selection.X,
		Y:      res.Selection.Y,
		Width:  res.Selection.Width,
		Height: res.Selection.Height,
		Frames: res.Frames,
		Size:   len(res.PNG),
	})
	if err != nil {
		logger.Println("[history]", err)
	}
}

func (a *app) interactive(url string) error {
	page, err := a.page(a.ctx, url)
	if err != nil {
		return err
	}

	s := a.shooter(page)

	if defaults.Monitor != "" {
		go func() {
			if err := a.listen(defaults.Monitor, s, page); err != nil {
				logger.Println("[monitor]", err)
			}
		}()
	}

	logger.Println("drag over the page to select the region, press Escape to cancel")

	res, err := s.Start()
	if err != nil {
		return err
	}

	a.record(url, res)
	return nil
}

func (a *app) region(url, region, at string) error {
	sel, err := parseSelection(region)
	if err != nil {
		return err
	}

	var point *regionshot.Point
	if at != "" {
		point, err = parsePoint(at)
		if err != nil {
			return err
		}
	}

	page, err := a.page(a.ctx, url)
	if err != nil {
		return err
	}

	s := a.shooter(page)

	r, err := s.RegionAt(sel, point)
	if err != nil {
		return err
	}

	res, err := s.Capture(r)
	if err != nil {
		return err
	}

	a.record(url, res)
	return nil
}

func (a *app) batch(path string) error {
	f, err := jobs.Load(path)
	if err != nil {
		return err
	}

	open := func(ctx context.Context, url string) (*regionshot.Shooter, func(), error) {
		page, err := a.page(ctx, url)
		if err != nil {
			return nil, nil, err
		}
		return a.shooter(page), func() { _ = page.Close() }, nil
	}

	return f.Run(a.ctx, open, func(j *jobs.Job, res *regionshot.Result, err error) {
		if err != nil {
			logger.Println("[job]", j.URL, err)
			return
		}
		a.record(j.URL, res)
	})
}

func (a *app) serve(addr, url string) error {
	page, err := a.page(a.ctx, url)
	if err != nil {
		return err
	}

	return a.listen(addr, a.shooter(page), page)
}

// listen serves the http api until the ctx is done
func (a *app) listen(addr string, s *regionshot.Shooter, page *rod.Page) error {
	srv := &http.Server{
		Addr: addr,
		Handler: server.New(s, server.Options{
			Dir:     string(a.saver),
			History: a.history,
			Navigate: func(ctx context.Context, url string) error {
				p := page.Context(ctx)
				if err := p.Navigate(url); err != nil {
					return err
				}
				return p.WaitLoad()
			},
			Logger: logger,
		}).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-a.ctx.Done()
		_ = srv.Close()
	}()

	logger.Println("serving on", addr)

	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("expect %d numbers separated by ',': %s", n, s)
	}

	list := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		list[i] = v
	}
	return list, nil
}

func parseSelection(s string) (regionshot.Selection, error) {
	v, err := parseFloats(s, 4)
	if err != nil {
		return regionshot.Selection{}, err
	}
	return regionshot.Selection{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, nil
}

func parsePoint(s string) (*regionshot.Point, error) {
	v, err := parseFloats(s, 2)
	if err != nil {
		return nil, err
	}
	return &regionshot.Point{X: v[0], Y: v[1]}, nil
}
