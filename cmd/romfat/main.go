// romfat serves the synthetic FAT12 volume and inspects it.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/aligator/romfat/checkpoint"
	"github.com/aligator/romfat/config"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp(afero.NewOsFs(), os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env is shared by all commands. cfg is loaded in the Before hook.
type env struct {
	fs  afero.Fs
	cfg config.Config
}

func newApp(fs afero.Fs, stdout io.Writer) *cli.App {
	e := &env{fs: fs}

	return &cli.App{
		Name:        "romfat",
		Usage:       "serve a read-only FAT12 volume over USB mass storage",
		Description: "romfat synthesizes a small FAT12 disk holding COPYING, README and INDEX.HTM. Writing to the DROPHERE directory disables it for good.",
		Writer:      stdout,
		// main reports errors, cli must never call os.Exit itself.
		ExitErrHandler: func(*cli.Context, error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML configuration file, ignored if missing",
				Value:   "romfat.yaml",
				EnvVars: []string{config.EnvPrefix + "_CONFIG"},
			},
		},
		Before: e.load,
		Commands: []*cli.Command{{
			Name:   "info",
			Usage:  "print the layout of the volume",
			Action: e.info,
		}, {
			Name:  "image",
			Usage: "write the volume to a file",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "out",
					Aliases:  []string{"o"},
					Usage:    "the image file to create",
					Required: true,
				},
			},
			Action: e.image,
		}, {
			Name:   "ls",
			Usage:  "list the files of the volume",
			Action: e.ls,
		}, {
			Name:      "cat",
			Usage:     "print a file of the volume",
			ArgsUsage: "NAME",
			Action:    e.cat,
		}, {
			Name:  "serve",
			Usage: "run the bulk-only transport on a pair of endpoint files",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "in",
					Usage:    "file or pipe the host writes commands to",
					Required: true,
				},
				&cli.StringFlag{
					Name:     "out",
					Usage:    "file or pipe the host reads data and status from",
					Required: true,
				},
			},
			Action: e.serve,
		}, {
			Name:   "status",
			Usage:  "print whether the synthetic volume is enabled",
			Action: e.status,
		}, {
			Name:   "enable",
			Usage:  "enable the synthetic volume again",
			Action: e.setFlag(true),
		}, {
			Name:   "disable",
			Usage:  "disable the synthetic volume like a write to DROPHERE does",
			Action: e.setFlag(false),
		}},
	}
}

func (e *env) load(c *cli.Context) error {
	cfg, err := config.Load(e.fs, c.String("config"))
	if err != nil {
		return err
	}
	// Validate may return a multierr error. cli treats that as cli.MultiError and exits the
	// process on its own, so it is wrapped into a single error.
	if err := cfg.Validate(); err != nil {
		return checkpoint.Wrap(err, config.ErrInvalidConfig)
	}
	if err := cfg.ConfigureLogging(); err != nil {
		return err
	}

	e.cfg = cfg
	return nil
}
