package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/starford/tenderwatch/internal"
	"github.com/starford/tenderwatch/internal/apperr"
	"github.com/starford/tenderwatch/internal/index"
	"github.com/starford/tenderwatch/internal/mailer"
	"github.com/starford/tenderwatch/internal/matcher"
	"github.com/starford/tenderwatch/internal/mcpserver"
	"github.com/starford/tenderwatch/internal/noticeservice"
	"github.com/starford/tenderwatch/internal/pipeline"
	"github.com/starford/tenderwatch/internal/seeds"
	"github.com/starford/tenderwatch/internal/storage"
)

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{Name: "json", Usage: "Print JSON instead of a table"}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run one batch: scrape, notify, merge, persist and render feeds",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "from-snapshot",
				Usage: "Replay the stored snapshot of day DD-MM-YYYY instead of scraping",
			},
			jsonFlag(),
		},
		Action: withApp(func(ctx context.Context, cmd *cli.Command, a *internal.App) error {
			var (
				sum pipeline.Summary
				err error
			)
			if day := cmd.String("from-snapshot"); day != "" {
				sum, err = a.Pipeline.Replay(ctx, day)
			} else {
				sum, err = a.Pipeline.Run(ctx)
			}
			if sum.Run.ID != "" {
				if cmd.Bool("json") {
					if jerr := writeJSON(stdout(cmd), sum); jerr != nil {
						return jerr
					}
				} else {
					renderSummary(stdout(cmd), sum)
				}
			}
			return err
		}),
	}
}

func seedsCommand() *cli.Command {
	return &cli.Command{
		Name:  "seeds",
		Usage: "Manage saved seeds",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List seeds",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "Only seeds containing this term"},
					jsonFlag(),
				},
				Action: withApp(func(ctx context.Context, cmd *cli.Command, a *internal.App) error {
					list, err := a.Seeds.Search(ctx, cmd.String("search"))
					if err != nil {
						return err
					}
					if cmd.Bool("json") {
						return writeJSON(stdout(cmd), list)
					}
					renderSeeds(stdout(cmd), list)
					return nil
				}),
			},
			{
				Name:      "search",
				Usage:     "Find seeds by code, name, district or tag",
				ArgsUsage: "<term>",
				Flags:     []cli.Flag{jsonFlag()},
				Action: withApp(func(ctx context.Context, cmd *cli.Command, a *internal.App) error {
					if cmd.Args().Len() == 0 {
						return errors.New("search term is required")
					}
					list, err := a.Service.SearchSeeds(ctx, strings.Join(cmd.Args().Slice(), " "))
					if err != nil {
						return err
					}
					if cmd.Bool("json") {
						return writeJSON(stdout(cmd), list)
					}
					renderSeeds(stdout(cmd), list)
					return nil
				}),
			},
			{
				Name:      "show",
				Usage:     "Show one seed",
				ArgsUsage: "<code>",
				Action: withApp(func(ctx context.Context, cmd *cli.Command, a *internal.App) error {
					code := cmd.Args().First()
					if code == "" {
						return errors.New("seed code is required")
					}
					seed, err := a.Seeds.Get(ctx, code)
					if err != nil {
						return err
					}
					return writeJSON(stdout(cmd), seed)
				}),
			},
			{
				Name:  "add",
				Usage: "Add a seed; with no district and no tags it matches everything",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "code", Usage: "Unique code (generated when empty)"},
					&cli.StringFlag{Name: "name", Usage: "Display label"},
					&cli.StringFlag{Name: "district", Usage: "Exact district"},
					&cli.StringSliceFlag{Name: "title-tag", Usage: "Term that must appear in the title (repeatable)"},
					&cli.StringSliceFlag{Name: "tag", Usage: "Term that must appear in the notice text (repeatable)"},
				},
				Action: withApp(func(ctx context.Context, cmd *cli.Command, a *internal.App) error {
					seed, err := a.Service.AddSeed(ctx, seeds.Input{
						Code:      cmd.String("code"),
						Name:      cmd.String("name"),
						District:  cmd.String("district"),
						TitleTags: cmd.StringSlice("title-tag"),
						Tags:      cmd.StringSlice("tag"),
					})
					if err != nil {
						return err
					}
					fmt.Fprintf(stdout(cmd), "added %s (%s)\n", seed.Code, seed.Name)
					return nil
				}),
			},
			{
				Name:      "remove",
				Usage:     "Remove a seed",
				ArgsUsage: "<code>",
				Action: withApp(func(ctx context.Context, cmd *cli.Command, a *internal.App) error {
					code := cmd.Args().First()
					if code == "" {
						return errors.New("seed code is required")
					}
					if err := a.Service.RemoveSeed(ctx, code); err != nil {
						return err
					}
					fmt.Fprintf(stdout(cmd), "removed %s\n", code)
					return nil
				}),
			},
		},
	}
}

func noticesCommand() *cli.Command {
	return &cli.Command{
		Name:  "notices",
		Usage: "List the active set, labelled with the current seeds",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "district", Usage: "Filter by district"},
			&cli.StringFlag{Name: "seed", Usage: "Only notices this seed code matches"},
			&cli.IntFlag{Name: "limit", Value: 50, Usage: "Page size"},
			&cli.IntFlag{Name: "offset", Usage: "Page offset"},
			jsonFlag(),
		},
		Action: withApp(func(ctx context.Context, cmd *cli.Command, a *internal.App) error {
			page, err := a.Service.ListActive(ctx, noticeservice.ActiveQuery{
				District: cmd.String("district"),
				Seed:     cmd.String("seed"),
				Limit:    int(cmd.Int("limit")),
				Offset:   int(cmd.Int("offset")),
			})
			if err != nil {
				return err
			}
			if cmd.Bool("json") {
				return writeJSON(stdout(cmd), page)
			}
			renderNotices(stdout(cmd), noticeservice.Summaries(page.Notices), page.Total)
			return nil
		}),
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Full-text search over archived notices",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: 20, Usage: "Max results"},
		},
		Action: withApp(func(ctx context.Context, cmd *cli.Command, a *internal.App) error {
			if cmd.Args().Len() == 0 {
				return errors.New("query is required")
			}
			res, err := a.Service.Search(ctx, strings.Join(cmd.Args().Slice(), " "), int(cmd.Int("limit")))
			if err != nil {
				return err
			}
			renderSearch(stdout(cmd), res)
			return nil
		}),
	}
}

func runsCommand() *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "Show the batch run log, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: 20, Usage: "Max runs"},
			jsonFlag(),
		},
		Action: withApp(func(ctx context.Context, cmd *cli.Command, a *internal.App) error {
			runs, err := a.Service.Runs(ctx, int(cmd.Int("limit")))
			if err != nil {
				return err
			}
			if cmd.Bool("json") {
				return writeJSON(stdout(cmd), runs)
			}
			renderRuns(stdout(cmd), runs)
			return nil
		}),
	}
}

func snapshotsCommand() *cli.Command {
	return &cli.Command{
		Name:  "snapshots",
		Usage: "List stored daily snapshots, newest first",
		Action: withApp(func(_ context.Context, cmd *cli.Command, a *internal.App) error {
			days, err := a.Collections.Snapshots()
			if err != nil {
				return err
			}
			for _, d := range days {
				fmt.Fprintln(stdout(cmd), d.Format(storage.SnapshotLayout))
			}
			return nil
		}),
	}
}

func feedsCommand() *cli.Command {
	return &cli.Command{
		Name:  "feeds",
		Usage: "Re-render both RSS feeds from the stored active set and seeds",
		Action: withApp(func(_ context.Context, cmd *cli.Command, a *internal.App) error {
			paths, err := a.Pipeline.RenderStored()
			for _, p := range paths {
				fmt.Fprintln(stdout(cmd), p)
			}
			return err
		}),
	}
}

func notifyTestCommand() *cli.Command {
	return &cli.Command{
		Name:  "notify-test",
		Usage: "Send a digest of the active notices the seeds match now, bypassing the new-notice check",
		Action: withApp(func(ctx context.Context, cmd *cli.Command, a *internal.App) error {
			active, err := a.Collections.LoadActive()
			if err != nil && !errors.Is(err, apperr.ErrNotFound) {
				return err
			}
			list, err := a.Seeds.List(ctx)
			if err != nil {
				return err
			}
			matched := matcher.Filter(active, list)
			if len(matched) == 0 {
				return errors.New("no active notice matches any seed; nothing to send")
			}
			sink := mailer.NewDigestSink(a.Transport, a.Config.Notify.Recipients(), a.Logger)
			if err := sink.Send(ctx, matched); err != nil {
				return err
			}
			fmt.Fprintf(stdout(cmd), "sent %d notices via %s\n", len(matched), a.Config.Notify.Driver)
			return nil
		}),
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the MCP tools on stdin/stdout",
		Action: withApp(func(_ context.Context, _ *cli.Command, a *internal.App) error {
			if _, err := index.Sync(a.Index, a.Collections, time.Now().In(a.Location), a.Logger); err != nil {
				a.Logger.Warn("initial sync failed", slog.String("error", err.Error()))
			}
			return mcpserver.New(a.Service, version).ServeStdio()
		}),
	}
}
