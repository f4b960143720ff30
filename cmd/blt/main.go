package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/copyforge/blt/internal/logger"
	"github.com/copyforge/blt/pkg/blt"
)

func main() {
	app := &cli.Command{
		Name:  "blt",
		Usage: "Copy engine batch encoder CLI",
		Flags: loggingFlags(),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			fileCfg = LoadConfig(configFile)
			if fileCfg.LogLevel != "" && !cmd.IsSet("log-level") {
				logLevel = fileCfg.LogLevel
			}
			if fileCfg.LogFormat != "" && !cmd.IsSet("log-format") {
				logFormat = fileCfg.LogFormat
			}
			log := setupLogger()
			blt.SetLogger(log.Slog())
			return logger.WithContext(ctx, log), nil
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			encodeCmd(),
			inspectCmd(),
			serveCmd(),
			versionCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogger() *logger.SlogLogger {
	if debug {
		logLevel = "debug"
	}
	lvl := logger.ParseLevel(logLevel)
	switch logFormat {
	case "json":
		return logger.JSON(os.Stderr, lvl)
	case "text":
		return logger.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	default:
		return logger.Pretty(os.Stderr, lvl)
	}
}
