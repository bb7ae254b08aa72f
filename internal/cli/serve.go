package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/chanomhub/gamedl/internal/download"
	"github.com/chanomhub/gamedl/internal/engine"
	"github.com/chanomhub/gamedl/internal/errors"
	"github.com/chanomhub/gamedl/internal/events"
	"github.com/chanomhub/gamedl/internal/helper"
	"github.com/chanomhub/gamedl/internal/library"
	"github.com/chanomhub/gamedl/internal/logger"
	"github.com/chanomhub/gamedl/internal/registry"
)

const maxRequestSize = 1 << 20

// request is one line read by serve. Only the fields used by Op are read.
type request struct {
	Ref      string                `json:"ref,omitempty"`
	Op       string                `json:"op"`
	URL      string                `json:"url,omitempty"`
	Filename string                `json:"filename,omitempty"`
	ID       string                `json:"id,omitempty"`
	Path     string                `json:"path,omitempty"`
	Progress float64               `json:"progress,omitempty"`
	Error    string                `json:"error,omitempty"`
	Event    json.RawMessage       `json:"event,omitempty"`
	Records  []download.Record     `json:"records,omitempty"`
	Launch   *library.LaunchConfig `json:"launchConfig,omitempty"`
	IconPath string                `json:"iconPath,omitempty"`
}

type reply struct {
	Ref      string `json:"ref,omitempty"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
	Category string `json:"category,omitempty"`
	Result   any    `json:"result,omitempty"`
}

type bridge struct {
	rt  *runtime
	out *events.JSONLines
}

// serveAction shares one writer between replies and engine events so lines
// never interleave.
func serveAction(c *cli.Context) error {
	out := events.NewJSONLines(c.App.Writer)

	return withRuntime(func(*cli.Context) events.Emitter { return out }, func(rt *runtime, c *cli.Context) error {
		return serve(rt, c, out)
	})(c)
}

func serve(rt *runtime, c *cli.Context, out *events.JSONLines) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := &bridge{rt: rt, out: out}

	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(c.App.Reader)
		scanner.Buffer(make([]byte, 64*1024), maxRequestSize)

		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}

		scanErr <- scanner.Err()
	}()

	logger.Infof("Serving requests")

	for {
		select {
		case <-ctx.Done():
			logger.Infof("Serve interrupted")
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}

			if line == "" {
				continue
			}

			b.write(b.handle(ctx, line))
		}
	}
}

func (b *bridge) write(r reply) {
	if err := b.out.Encode(r); err != nil {
		logger.Errorf("Failed to write reply %s: %v", r.Ref, err)
	}
}

func (b *bridge) handle(ctx context.Context, line string) reply {
	var req request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		logger.Warnf("Discarding malformed request: %v", err)
		return failure("", errors.NewMalformedError(line, err))
	}

	result, err := b.dispatch(ctx, req)
	if err != nil {
		logger.Debugf("Request %s (%s) failed: %v", req.Ref, req.Op, err)
		return failure(req.Ref, err)
	}

	return reply{Ref: req.Ref, OK: true, Result: result}
}

func (b *bridge) dispatch(ctx context.Context, req request) (any, error) {
	eng := b.rt.engine

	switch req.Op {
	case "start":
		return eng.Start(ctx, engine.StartRequest{URL: req.URL, Filename: req.Filename, ID: req.ID})
	case "cancel":
		return nil, eng.Cancel(ctx, req.ID)
	case "list":
		return eng.List(), nil
	case "get":
		return eng.Get(req.ID)
	case "register":
		return eng.RegisterManual(req.ID, req.Filename, req.Path)
	case "event":
		ev, err := helper.DecodeEvent(string(req.Event))
		if err != nil {
			return nil, err
		}
		return nil, eng.HandleEvent(ev)
	case "prune":
		n, err := eng.Prune(registry.Terminal)
		return map[string]int{"removed": n}, err
	case "games":
		return b.rt.library.Games()
	case "save-games":
		records := req.Records
		if records == nil {
			records = eng.List()
		}
		return nil, b.rt.library.Save(records)
	case "set-launch-config":
		if req.Launch == nil {
			return nil, errors.NewInvalidError("set launch config", req.ID, errors.New("launchConfig is required"))
		}
		return nil, b.rt.library.SetLaunchConfig(req.ID, *req.Launch, req.IconPath)
	case "download-dir":
		return eng.DownloadDir(), nil
	case "set-download-dir":
		if err := eng.SetDownloadDir(req.Path); err != nil {
			return nil, err
		}
		return eng.DownloadDir(), nil
	case "extraction-started":
		return nil, eng.ExtractionStarted(req.ID)
	case "extraction-progress":
		eng.ExtractionProgress(req.ID, req.Progress)
		return nil, nil
	case "extraction-completed":
		return nil, eng.ExtractionCompleted(req.ID, req.Path)
	case "extraction-failed":
		var cause error
		if req.Error != "" {
			cause = errors.New(req.Error)
		}
		return nil, eng.ExtractionFailed(req.ID, cause)
	case "upload":
		return eng.Upload(ctx, req.ID)
	default:
		return nil, errors.NewInvalidError(req.Op, req.ID, fmt.Errorf("unknown op %q", req.Op))
	}
}

func failure(ref string, err error) reply {
	return reply{
		Ref:      ref,
		OK:       false,
		Error:    err.Error(),
		Category: string(errors.CategoryOf(err)),
	}
}
