package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli"

	"github.com/1F47E/go-inkwell/pkg/config"
	"github.com/1F47E/go-inkwell/pkg/core"
	"github.com/1F47E/go-inkwell/pkg/job"
	"github.com/1F47E/go-inkwell/pkg/logger"
	"github.com/1F47E/go-inkwell/pkg/pipeline"
	"github.com/1F47E/go-inkwell/pkg/prefs"
	"github.com/1F47E/go-inkwell/pkg/preview"
	"github.com/1F47E/go-inkwell/pkg/render"
	"github.com/1F47E/go-inkwell/pkg/tui"
)

var app = cli.NewApp()
var log = logger.Log

var flags = []cli.Flag{
	cli.StringFlag{
		Name:  "formats, f",
		Usage: "comma separated list of png,jpg,pdf",
	},
	cli.StringFlag{
		Name:  "background, b",
		Usage: "transparent, white, #rrggbb or an image path",
	},
	cli.IntFlag{
		Name:  "quality, q",
		Usage: "jpg quality 50-100, out of range values are clamped",
	},
	cli.StringFlag{
		Name:  "out, o",
		Value: "out/writing",
		Usage: "output basename, artifacts land at <basename>-<variant>.<ext>",
	},
	cli.IntFlag{
		Name:  "style, s",
		Usage: "writing style index",
	},
	cli.BoolFlag{
		Name:  "show",
		Usage: "open the first artifact in the system viewer",
	},
}

func init() {
	app.Name = "inkwell"
	app.Usage = "A handwriting image generator"
	app.UsageText = "inkwell [command] filename"
	app.HideHelp = true
	app.HideVersion = true
	app.ArgsUsage = ""
	app.Commands = []cli.Command{
		{
			Name:    "generate",
			Aliases: []string{"g"},
			Usage:   "Generate handwriting from a text file (stdin with -)",
			Flags:   flags,
			Action:  runGenerate,
		},
		{
			Name:    "queue",
			Aliases: []string{"u"},
			Usage:   "Process a queue: every argument is one text file",
			Flags:   flags,
			Action:  runQueue,
		},
	}
}

func runGenerate(c *cli.Context) error {
	text, name, err := readText(c)
	if err != nil {
		return err
	}
	req, userPrefs, err := buildRequest(c, text)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cr := core.New(ctx, render.NewScribble(), nil)
	cr.Start()

	ui := tui.New(cr.EventsCh(), ctx)
	ui.OnResize = cr.OnResize
	ui.OnQuit = func() {
		cr.Close()
		cancel()
	}
	go ui.Run()

	res := cr.Generate(job.New(name, req))
	prefs.Save(config.PathPrefs, userPrefs)

	return finish(c, res)
}

func runQueue(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one filename is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cr := core.New(ctx, render.NewScribble(), nil)
	cr.Start()

	items := make([]job.Export, 0, c.NArg())
	for _, filename := range c.Args() {
		data, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("cannot read %s: %w", filename, err)
		}
		req, _, err := buildRequest(c, string(data))
		if err != nil {
			return err
		}
		req.Basename = fmt.Sprintf("%s-%s", c.String("out"), baseNoExt(filename))
		items = append(items, job.New(baseNoExt(filename), req))
	}

	results := cr.ProcessQueue(items, true)

	failed := 0
	for _, r := range results {
		if r.Res.Outcome() == pipeline.OutcomeFailure {
			failed++
			log.Errorf("%q failed: %v", r.Name, r.Res.Err)
		}
	}
	log.Infof("Queue done: %d ok, %d failed", len(results)-failed, failed)
	if failed == len(results) {
		return fmt.Errorf("all queue items failed")
	}
	return nil
}

func finish(c *cli.Context, res pipeline.Result) error {
	switch res.Outcome() {
	case pipeline.OutcomeFailure:
		return fmt.Errorf("generation failed: %v", res.Err)
	case pipeline.OutcomePartial:
		for _, a := range res.Artifacts {
			if a.Status == pipeline.StatusFallback {
				log.Warnf("%s capability missing, wrote %s instead", a.Format, a.Path)
			}
			if a.Err != nil {
				log.Errorf("%s failed: %v", a.Format, a.Err)
			}
		}
	}
	for _, a := range res.Artifacts {
		if a.Err == nil {
			log.Infof("Saved %s", a.Path)
		}
	}

	if c.Bool("show") {
		for _, a := range res.Artifacts {
			if a.Err == nil {
				return preview.Open(a.Path)
			}
		}
	}
	return nil
}

// buildRequest merges saved prefs with the flags of this invocation
// and persists the merge back as the new defaults.
func buildRequest(c *cli.Context, text string) (pipeline.Request, prefs.Prefs, error) {
	userPrefs := prefs.Load(config.PathPrefs)
	if c.IsSet("quality") {
		userPrefs.JPGQuality = c.Int("quality")
	}
	if c.IsSet("style") {
		userPrefs.Style = c.Int("style") % config.StyleCount
	}
	if c.IsSet("formats") {
		userPrefs.ExportFormat = c.String("formats")
	}
	if c.IsSet("background") {
		userPrefs.BackgroundType = c.String("background")
	}

	formats, err := parseFormats(userPrefs.ExportFormat)
	if err != nil {
		return pipeline.Request{}, userPrefs, err
	}
	bg, err := parseBackground(userPrefs.BackgroundType)
	if err != nil {
		return pipeline.Request{}, userPrefs, err
	}
	stroke, err := render.ParseHexColor(userPrefs.StrokeColor)
	if err != nil {
		return pipeline.Request{}, userPrefs, err
	}

	return pipeline.Request{
		Content: render.Content{
			Text:        text,
			StyleIndex:  userPrefs.Style,
			StrokeColor: stroke,
			StrokeWidth: userPrefs.StrokeWidth,
			Legibility:  userPrefs.Legibility,
			LineWidth:   userPrefs.LineWidth,
			LineSpacing: userPrefs.LineSpacing,
		},
		Background: bg,
		Formats:    formats,
		Quality:    userPrefs.JPGQuality,
		Basename:   c.String("out"),
	}, userPrefs, nil
}

func parseFormats(s string) ([]pipeline.Format, error) {
	var out []pipeline.Format
	for _, part := range strings.Split(s, ",") {
		switch strings.TrimSpace(part) {
		case "png":
			out = append(out, pipeline.FormatPNG)
		case "jpg", "jpeg":
			out = append(out, pipeline.FormatJPG)
		case "pdf":
			out = append(out, pipeline.FormatPDF)
		case "":
		default:
			return nil, fmt.Errorf("unknown format %q", part)
		}
	}
	if len(out) == 0 {
		out = []pipeline.Format{pipeline.FormatPNG}
	}
	return out, nil
}

func parseBackground(s string) (render.Background, error) {
	switch {
	case s == "transparent":
		return render.Background{Kind: render.BackgroundTransparent}, nil
	case s == "white" || s == "":
		return render.Background{Kind: render.BackgroundSolid, Color: render.White}, nil
	case strings.HasPrefix(s, "#"):
		c, err := render.ParseHexColor(s)
		if err != nil {
			return render.Background{}, err
		}
		return render.Background{Kind: render.BackgroundSolid, Color: c}, nil
	default:
		return render.Background{Kind: render.BackgroundImage, ImagePath: s}, nil
	}
}

func readText(c *cli.Context) (text, name string, err error) {
	f := c.Args().Get(0)
	if f == "" {
		return "", "", fmt.Errorf("Filename is required")
	}
	if f == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", err
		}
		return string(data), "stdin", nil
	}
	data, err := os.ReadFile(f)
	if err != nil {
		return "", "", err
	}
	return string(data), baseNoExt(f), nil
}

func baseNoExt(path string) string {
	base := path
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	return base
}

func main() {
	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}
