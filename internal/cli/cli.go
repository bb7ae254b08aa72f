// Package cli is the gamedl command line. Every command opens the configured
// state, runs against the engine and shuts it down again.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/chanomhub/gamedl/internal/download"
	"github.com/chanomhub/gamedl/internal/engine"
	"github.com/chanomhub/gamedl/internal/events"
	"github.com/chanomhub/gamedl/internal/logger"
	"github.com/chanomhub/gamedl/internal/registry"
	"github.com/chanomhub/gamedl/internal/tui/components"
)

const listWidth = 80

var (
	configFlag = cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "path to the configuration file",
		EnvVars: []string{"GAMEDL_CONFIG"},
	}

	debugFlag = cli.BoolFlag{
		Name:  "debug",
		Usage: "enable debug logging",
	}

	idFlag = cli.StringFlag{
		Name:  "id",
		Usage: "the download id; generated when omitted",
	}

	filenameFlag = cli.StringFlag{
		Name:  "filename",
		Usage: "the name of the downloaded file",
	}
)

// New returns the gamedl application. Output goes to the app's Writer and
// ErrWriter; serve reads requests from its Reader.
func New() *cli.App {
	return &cli.App{
		Name:  "gamedl",
		Usage: "coordinate game downloads performed by an external helper",
		Flags: []cli.Flag{&configFlag, &debugFlag},
		Commands: []*cli.Command{{
			Name:        "serve",
			Usage:       "bridge requests and events over stdin and stdout",
			Description: "reads one JSON request per line and writes replies and download events as JSON lines",
			Action:      serveAction,
		}, {
			Name:  "start",
			Usage: "run one download in the foreground",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "url",
					Usage:    "the url to download",
					Required: true,
				},
				&filenameFlag,
				&idFlag,
			},
			Action: withRuntime(func(c *cli.Context) events.Emitter {
				return events.NewJSONLines(c.App.ErrWriter)
			}, start),
		}, {
			Name:    "list",
			Aliases: []string{"ls"},
			Usage:   "show every stored download",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "json", Usage: "print records as JSON"},
			},
			Action: withRuntime(discard, func(rt *runtime, c *cli.Context) error {
				records := rt.engine.List()
				if c.Bool("json") {
					return jsonPrint(c, records)
				}

				_, err := fmt.Fprintln(c.App.Writer, components.RenderDownloadList(records, listWidth))
				return err
			}),
		}, {
			Name:  "register",
			Usage: "record a file downloaded outside gamedl as completed",
			Flags: []cli.Flag{
				&idFlag,
				&filenameFlag,
				&cli.StringFlag{
					Name:     "path",
					Usage:    "the location of the downloaded file",
					Required: true,
				},
			},
			Action: withRuntime(discard, func(rt *runtime, c *cli.Context) error {
				rec, err := rt.engine.RegisterManual(c.String(idFlag.Name), c.String(filenameFlag.Name), c.String("path"))
				if err != nil {
					return err
				}

				return jsonPrint(c, rec)
			}),
		}, {
			Name:  "cancel",
			Usage: "ask the helper to stop a download",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "id", Usage: "the download id", Required: true},
			},
			Action: withRuntime(discard, func(rt *runtime, c *cli.Context) error {
				return rt.engine.Cancel(c.Context, c.String("id"))
			}),
		}, {
			Name:  "prune",
			Usage: "forget finished downloads",
			Action: withRuntime(discard, func(rt *runtime, c *cli.Context) error {
				n, err := rt.engine.Prune(registry.Terminal)
				if err != nil {
					return err
				}

				_, err = fmt.Fprintf(c.App.Writer, "removed %d downloads\n", n)
				return err
			}),
		}, {
			Name:  "games",
			Usage: "show the saved games",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "json", Usage: "print games as JSON"},
			},
			Action: withRuntime(discard, func(rt *runtime, c *cli.Context) error {
				games, err := rt.library.Games()
				if err != nil {
					return err
				}

				if c.Bool("json") {
					return jsonPrint(c, games)
				}

				_, err = fmt.Fprintln(c.App.Writer, components.RenderGameList(games))
				return err
			}),
		}, {
			Name:      "download-dir",
			Usage:     "show or set the folder new downloads are saved to",
			ArgsUsage: "[DIR]",
			Action: withRuntime(discard, func(rt *runtime, c *cli.Context) error {
				if dir := c.Args().First(); dir != "" {
					if err := rt.engine.SetDownloadDir(dir); err != nil {
						return err
					}
				}

				_, err := fmt.Fprintln(c.App.Writer, rt.engine.DownloadDir())
				return err
			}),
		}, {
			Name:  "upload",
			Usage: "copy a completed download to the configured bucket",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "id", Usage: "the download id", Required: true},
			},
			Action: withRuntime(discard, func(rt *runtime, c *cli.Context) error {
				location, err := rt.engine.Upload(c.Context, c.String("id"))
				if err != nil {
					return err
				}

				_, err = fmt.Fprintln(c.App.Writer, location)
				return err
			}),
		}},
	}
}

// start runs one download until its helper exits or the process is
// interrupted, in which case the download is cancelled.
func start(rt *runtime, c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec, err := rt.engine.Start(ctx, engine.StartRequest{
		URL:      c.String("url"),
		Filename: c.String(filenameFlag.Name),
		ID:       c.String(idFlag.Name),
	})
	if err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		rt.engine.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		logger.Infof("Interrupted, cancelling download %s", rec.ID)
		if err := rt.engine.Cancel(context.Background(), rec.ID); err != nil {
			logger.Warnf("Failed to cancel %s: %v", rec.ID, err)
		}
	}

	final, err := rt.engine.Get(rec.ID)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintln(c.App.Writer, components.DownloadItem(final, listWidth)); err != nil {
		return err
	}

	return exitStatus(final)
}

func exitStatus(rec download.Record) error {
	if rec.Status.IsTerminal() && rec.Error == "" {
		return nil
	}

	msg := rec.Error
	if msg == "" {
		msg = "download ended while " + rec.Status.String()
	}

	return fmt.Errorf("download %s: %s", rec.ID, msg)
}

func jsonPrint(c *cli.Context, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(c.App.Writer, "%s\n", data)
	return err
}
