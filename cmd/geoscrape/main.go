package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/woozymasta/geoscrape/internal/config"
	"github.com/woozymasta/geoscrape/internal/fetcher"
	"github.com/woozymasta/geoscrape/internal/logger"
	"github.com/woozymasta/geoscrape/internal/processor"

	"github.com/jessevdk/go-flags"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"
)

const searchNameEnv = "WIKI_SEARCHNAME"

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile   string        `short:"c" long:"config"        env:"CONFIG_FILE"   description:"Path to optional YAML configuration file"`
	StartURL     string        `short:"u" long:"start-url"     env:"WIKI_STARTURL" description:"Page listing the locations to search"`
	OutDir       string        `short:"o" long:"out-dir"       env:"WIKI_OUTDIR"   description:"Directory for GeoJSON output and the run log"`
	LinkSelector string        `short:"s" long:"link-selector" env:"LINK_SELECTOR" description:"CSS selector of candidate links on the start page"`
	UserAgent    string        `long:"user-agent"              env:"USER_AGENT"    description:"User-Agent header sent with every request"`
	Timeout      time.Duration `short:"t" long:"timeout"       env:"TIMEOUT"       description:"Per request timeout"`
	Depth        int           `short:"d" long:"depth"         env:"CRAWL_DEPTH"   description:"Follow sub-location pages this many levels below the target"`
	MaxPages     int           `short:"m" long:"max-pages"     env:"MAX_PAGES"     description:"Maximum number of pages crawled below the target"`
	Describe     bool          `short:"D" long:"describe"      description:"Fetch place pages and add their description"`
	Compact      bool          `long:"compact"                 description:"Write minified GeoJSON"`
	Preview      bool          `short:"p" long:"preview"       description:"Render a WebP preview next to the GeoJSON"`

	Args struct {
		SearchName []string `positional-arg-name:"NAME" description:"Location name to look up (env WIKI_SEARCHNAME)"`
	} `positional-args:"yes"`
}

func main() {
	os.Exit(run())
}

func run() int {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = "[OPTIONS] NAME"
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return 0
		}
		return 2
	}

	opts.Logger.Setup()

	cfg, err := opts.runConfig()
	if err != nil {
		log.Error().Err(err).Msg("Invalid configuration")
		return 2
	}

	runLog, closer, err := opts.Logger.Open(cfg.OutDir)
	if err != nil {
		log.Error().Err(err).Str("dir", cfg.OutDir).Msg("Failed to open log file")
		return 1
	}
	defer func() { _ = closer.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = runLog.WithContext(ctx)

	f := fetcher.New(nil, fetcher.Options{
		UserAgent:   cfg.UserAgent,
		Timeout:     cfg.Timeout,
		MaxBodySize: cfg.MaxBodySize,
	})

	res, err := processor.NewScraper(cfg, f).Run(ctx)
	if err != nil {
		event := runLog.Error().Err(err)
		var stageErr *processor.StageError
		if errors.As(err, &stageErr) {
			event = event.Stringer("stage", stageErr.Stage)
		}
		event.Msg("Run aborted")
		return 1
	}

	fmt.Println(res.Path)
	return 0
}

// runConfig merges the config file, command line and environment.
// Set flags win over the file, unset values fall back to defaults.
func (o *Options) runConfig() (*config.RunConfig, error) {
	cfg := &config.RunConfig{}
	if o.ConfigFile != "" {
		var err error
		if cfg, err = config.Load(o.ConfigFile); err != nil {
			return nil, err
		}
	}

	if name := strings.Join(o.Args.SearchName, " "); strings.TrimSpace(name) != "" {
		cfg.SearchName = name
	} else if env := os.Getenv(searchNameEnv); strings.TrimSpace(env) != "" {
		cfg.SearchName = env
	}
	if strings.TrimSpace(cfg.SearchName) == "" && isTerminal(os.Stdin) {
		cfg.SearchName = prompt(os.Stdin, os.Stderr)
	}

	override(&cfg.StartURL, o.StartURL)
	override(&cfg.OutDir, o.OutDir)
	override(&cfg.LinkSelector, o.LinkSelector)
	override(&cfg.UserAgent, o.UserAgent)
	override(&cfg.Timeout, o.Timeout)
	override(&cfg.Depth, o.Depth)
	override(&cfg.MaxPages, o.MaxPages)
	override(&cfg.Describe, o.Describe)
	override(&cfg.Compact, o.Compact)
	override(&cfg.Preview, o.Preview)

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func override[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func prompt(in io.Reader, out io.Writer) string {
	_, _ = fmt.Fprint(out, "Location name: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return ""
	}
	return strings.TrimSpace(line)
}
