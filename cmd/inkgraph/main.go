// inkgraph edits and inspects animation projects from the command line.
//
// Usage:
//
//	inkgraph <command> [args]
//
// Commands:
//
//	init              create an empty project in project.root
//	stat              load the project and print object counts
//	dump              print the project tree as a YAML fixture
//	seed <fixture>    add a YAML fixture to the project and save
//	run <script>...   run Lua scripts against the project and save
//	inspect <file>    print the header and free list of an asset file
//
// The config file comes from $INKGRAPH_CONFIG (default config/inkgraph.toml);
// a missing file means built-in defaults.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/l1jgo/inkgraph/internal/config"
	"github.com/l1jgo/inkgraph/internal/data"
	"github.com/l1jgo/inkgraph/internal/pagefile"
	"github.com/l1jgo/inkgraph/internal/persist"
	"github.com/l1jgo/inkgraph/internal/scripting"
	"github.com/l1jgo/inkgraph/internal/session"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Display helpers ────────────────────────────────────────────────

func printBanner(dir string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m               inkgraph v0.1.0             \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mproject:\033[0m %s\n\n", dir)
}

func printSection(title string) {
	lineLen := 46 - len([]rune(title)) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len([]rune(label)) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printWarn(msg string) {
	fmt.Printf("  \033[31m!\033[0m %s\n", msg)
}

func printReport(rep *persist.Report) {
	for _, d := range rep.Diagnostics {
		printWarn(d.Error())
	}
}

// ── Commands ───────────────────────────────────────────────────────

func run(args []string) error {
	fs := flag.NewFlagSet("inkgraph", flag.ContinueOnError)
	projectDir := fs.String("project", "", "project directory (overrides project.root)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	cfg, err := config.LoadOrDefault(config.Path())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *projectDir != "" {
		cfg.Project.Root = *projectDir
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "init":
		return cmdInit(cfg, log)
	case "stat":
		return cmdStat(cfg, log)
	case "dump":
		return cmdDump(cfg, log)
	case "seed":
		if len(rest) != 1 {
			return errors.New("usage: inkgraph seed <fixture.yaml>")
		}
		return cmdSeed(cfg, log, rest[0])
	case "run":
		if len(rest) == 0 {
			return errors.New("usage: inkgraph run <script.lua>...")
		}
		return cmdRun(cfg, log, rest)
	case "inspect":
		if len(rest) != 1 {
			return errors.New("usage: inkgraph inspect <file>")
		}
		return cmdInspect(rest[0], log)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func cmdInit(cfg *config.Config, log *zap.Logger) error {
	s, err := session.Create(cfg, log)
	if err != nil {
		return err
	}
	defer s.Close()
	if _, err := s.Save(); err != nil {
		return err
	}
	printOK("project created in " + cfg.Project.Root)
	return nil
}

func open(cfg *config.Config, log *zap.Logger) (*session.Session, error) {
	s, rep, err := session.Open(cfg, log)
	if err != nil {
		return nil, err
	}
	printReport(rep)
	return s, nil
}

func cmdStat(cfg *config.Config, log *zap.Logger) error {
	s, err := open(cfg, log)
	if err != nil {
		return err
	}
	defer s.Close()

	p := s.Project
	printBanner(cfg.Project.Root)
	printSection("objects")
	printStat("folders", p.Folders.Len())
	printStat("graphics", p.Graphics.Len())
	printStat("layers", p.Layers.Len())
	printStat("frames", p.Frames.Len())
	printStat("strokes", p.Strokes.Len())
	printStat("palettes", p.Palettes.Len())
	printStat("swatches", p.Swatches.Len())
	printStat("audio", p.Audio.Len())
	fmt.Println()
	printSection("files")
	printStat("open asset files", s.Store.OpenFiles())
	return nil
}

func cmdDump(cfg *config.Config, log *zap.Logger) error {
	s, err := open(cfg, log)
	if err != nil {
		return err
	}
	defer s.Close()
	out, err := data.Dump(s.Project)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}

func save(s *session.Session) error {
	rep, err := s.Save()
	if err != nil {
		return err
	}
	printReport(rep)
	printOK(fmt.Sprintf("saved %d objects, %d new files", rep.Objects, rep.Files))
	return nil
}

func cmdSeed(cfg *config.Config, log *zap.Logger, path string) error {
	fx, err := data.LoadFixture(path)
	if err != nil {
		return err
	}
	s, err := open(cfg, log)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := data.Seed(s, fx); err != nil {
		return err
	}
	return save(s)
}

func cmdRun(cfg *config.Config, log *zap.Logger, scripts []string) error {
	s, err := open(cfg, log)
	if err != nil {
		return err
	}
	defer s.Close()

	eng := scripting.NewEngine(s, log.Named("lua"))
	defer eng.Close()
	for _, path := range scripts {
		if !filepath.IsAbs(path) {
			if _, err := os.Stat(path); err != nil {
				path = filepath.Join(cfg.Scripting.Dir, path)
			}
		}
		if err := eng.DoFile(path); err != nil {
			return err
		}
		printOK("ran " + path)
	}
	s.Flush()
	return save(s)
}

func cmdInspect(path string, log *zap.Logger) error {
	pf, err := pagefile.Open(path, pagefile.Options{Log: log})
	if err != nil {
		return err
	}
	defer pf.Close()
	free, err := pf.FreeList()
	if err != nil {
		printWarn(err.Error())
	}
	h := pf.Header()
	printSection(filepath.Base(path))
	printStat("page data size", int(h.DataSize))
	printStat("pages", pf.PageCount())
	printStat("free pages", len(free))
	printStat("root page", int(h.RootPage))
	printStat("root key", int(h.RootKey))
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
