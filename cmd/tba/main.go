package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/briangreenhill/tba/internal/app"
	"github.com/briangreenhill/tba/internal/config"
	"github.com/briangreenhill/tba/internal/jobs"
	"github.com/briangreenhill/tba/tba"
)

const version = "v0.1.0"

// noNickname is printed for teams whose nickname is absent or unreadable
const noNickname = "-"

func main() {
	if err := runCLI(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: tba [-force-new] [-force-cache] <command> [args]")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  get <path>          Print the JSON at an API path, e.g. /team/frc254")
	fmt.Fprintln(w, "  team <id>           Show a team by number or key")
	fmt.Fprintln(w, "  teams [year]        List every team, optionally for one season")
	fmt.Fprintln(w, "  warm <path>...      Refresh cache entries (queued when TBA_REDIS_ADDR is set)")
	fmt.Fprintln(w, "  version             Print the version")
	fmt.Fprintln(w, "  help                Show this help message")
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  TBA_AUTH_KEY        Your TBA read API key (required)")
	fmt.Fprintln(w, "  TBA_CACHE           Enable the response cache (default true)")
	fmt.Fprintln(w, "  TBA_CACHE_BACKEND   sqlite, postgres, redis, file or memory")
	fmt.Fprintln(w, "  TBA_CACHE_DIR       Cache directory (default ~/.tba_cache)")
	fmt.Fprintln(w, "  TBA_CONFIG_FILE     Optional YAML config file")
}

func runCLI(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		usage(stdout)
		return nil
	}
	switch args[0] {
	case "help", "--help", "-h":
		usage(stdout)
		return nil
	case "version", "--version", "-v":
		fmt.Fprintln(stdout, "tba", version)
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	return run(ctx, cfg, args, stdout, stderr)
}

func run(ctx context.Context, cfg *config.Config, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("tba", flag.ContinueOnError)
	fs.SetOutput(stderr)
	forceNew := fs.Bool("force-new", false, "skip the cache lookup")
	forceCache := fs.Bool("force-cache", false, "answer from the cache without the network")
	if err := fs.Parse(args); err != nil {
		return err
	}
	args = fs.Args()
	if len(args) == 0 {
		usage(stdout)
		return nil
	}

	var opts []tba.FetchOption
	if *forceNew {
		opts = append(opts, tba.ForceNew())
	}
	if *forceCache {
		opts = append(opts, tba.ForceCache())
	}

	a, err := app.Setup(ctx, cfg, stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	switch args[0] {
	case "get":
		if len(args) != 2 {
			return errors.New("usage: tba get <path>")
		}
		raw, err := a.Client.FetchRaw(ctx, args[1], opts...)
		if errors.Is(err, tba.ErrEmptyResult) {
			raw, err = json.RawMessage(`[]`), nil
		}
		if err != nil {
			return err
		}
		return printJSON(stdout, raw)

	case "team":
		if len(args) != 2 {
			return errors.New("usage: tba team <id>")
		}
		team, err := a.Client.Team(ctx, args[1], opts...)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(team.Flatten())
		if err != nil {
			return err
		}
		return printJSON(stdout, raw)

	case "teams":
		year := 0
		if len(args) > 1 {
			if year, err = strconv.Atoi(args[1]); err != nil {
				return fmt.Errorf("year %q: %w", args[1], tba.ErrInvalidInput)
			}
		}
		teams, err := a.Client.AllTeams(ctx, year, opts...)
		if err != nil {
			return err
		}
		for _, team := range teams.Items() {
			key, err := team.AsString()
			if err != nil {
				fmt.Fprintf(stderr, "skipping team: %v\n", err)
				continue
			}
			nick, err := team.GetString("nick")
			if err != nil || nick == "" {
				nick = noNickname
			}
			fmt.Fprintf(stdout, "%s\t%s\n", key, nick)
		}
		return nil

	case "warm":
		if len(args) < 2 {
			return errors.New("usage: tba warm <path>...")
		}
		return warm(ctx, a, args[1:], stdout)

	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

// warm queues refreshes when a worker queue is configured and otherwise
// refreshes in-process.
func warm(ctx context.Context, a *app.App, paths []string, stdout io.Writer) error {
	if a.Config.RedisAddr != "" {
		e := jobs.NewEnqueuer(a.Config.RedisAddr, a.Log)
		defer e.Close()
		n, err := e.Enqueue(ctx, paths...)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "queued %d of %d\n", n, len(paths))
		return nil
	}

	for _, path := range paths {
		_, err := a.Client.FetchRaw(ctx, path, tba.ForceNew())
		if err != nil && !errors.Is(err, tba.ErrEmptyResult) {
			return fmt.Errorf("warm %s: %w", path, err)
		}
		fmt.Fprintf(stdout, "refreshed %s\n", tba.NormalizePath(path))
	}
	return nil
}

func printJSON(w io.Writer, raw []byte) error {
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return err
	}
	out.WriteByte('\n')
	_, err := out.WriteTo(w)
	return err
}
