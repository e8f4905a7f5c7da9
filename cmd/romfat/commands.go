package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/aligator/romfat"
	"github.com/aligator/romfat/fatfs"
	"github.com/aligator/romfat/logging"
	"github.com/aligator/romfat/msc"
	"github.com/aligator/romfat/persist"
	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
)

var errCatArgs = errors.New("cat expects exactly one file name")

func (e *env) volume() (*romfat.Volume, error) {
	payloads, err := e.cfg.Payloads(e.fs)
	if err != nil {
		return nil, err
	}
	return romfat.NewVolume(payloads, e.cfg.VolumeOptions()...)
}

// mount opens the synthetic volume through the FAT reader, the way a host would see it.
func (e *env) mount() (*fatfs.Fs, error) {
	volume, err := e.volume()
	if err != nil {
		return nil, err
	}
	return fatfs.New(romfat.NewImageReader(romfat.NewResolver(volume, nil, nil, nil)))
}

func (e *env) flag() *persist.FileFlag {
	return persist.NewFileFlag(e.fs, e.cfg.FlagFile)
}

func (e *env) info(c *cli.Context) error {
	volume, err := e.volume()
	if err != nil {
		return err
	}

	out := c.App.Writer
	fmt.Fprintf(out, "Volume %q, %v sectors (%v)\n\n",
		volume.Label(),
		volume.TotalSectors(),
		humanize.IBytes(uint64(volume.TotalSectors())*romfat.SectorSize))

	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tNAME\tLBA\tBLOCKS\tSIZE")
	for _, region := range volume.Regions() {
		size := uint64(region.Size)
		if region.Kind == romfat.RegionFree {
			size = uint64(region.Blocks) * romfat.SectorSize
		}

		lba := fmt.Sprint(region.Start)
		if region.Blocks > 1 {
			lba = fmt.Sprintf("%v-%v", region.Start, region.End()-1)
		}
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\n", region.Kind, region.Name, lba, region.Blocks, humanize.IBytes(size))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nWrites to LBA %v disable the volume.\n", volume.TriggerLBA())
	return nil
}

func (e *env) image(c *cli.Context) error {
	volume, err := e.volume()
	if err != nil {
		return err
	}

	path := c.String("out")
	file, err := e.fs.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	n, err := romfat.WriteImage(file, romfat.NewResolver(volume, nil, nil, nil))
	if err != nil {
		return err
	}

	logging.Info(logging.ComponentCLI, "image written", "path", path, "bytes", n)
	fmt.Fprintf(c.App.Writer, "Wrote %v to %v\n", humanize.IBytes(uint64(n)), path)
	return file.Close()
}

func (e *env) ls(c *cli.Context) error {
	fat, err := e.mount()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 8, 2, ' ', 0)
	err = afero.Walk(fat, "/", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		size := humanize.IBytes(uint64(info.Size()))
		if info.IsDir() {
			size = "-"
		}
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\n", info.Mode(), size, info.ModTime().Format("2006-01-02 15:04:05"), path)
		return nil
	})
	if err != nil {
		return err
	}
	return w.Flush()
}

func (e *env) cat(c *cli.Context) error {
	if c.NArg() != 1 {
		return errCatArgs
	}

	fat, err := e.mount()
	if err != nil {
		return err
	}

	data, err := afero.ReadFile(fat, c.Args().First())
	if err != nil {
		return err
	}
	_, err = c.App.Writer.Write(data)
	return err
}

func (e *env) serve(c *cli.Context) error {
	ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt)
	defer cancel()

	// The session ends once the host stops or ejects the unit.
	hook := romfat.SessionHookFunc(func(code uint8) {
		logging.Info(logging.ComponentCLI, "session stopped by the host", "code", code)
		cancel()
	})

	volume, err := e.volume()
	if err != nil {
		return err
	}
	flag := e.flag()
	synthetic := romfat.NewResolver(volume, flag, flag, hook)

	var override romfat.BlockDevice
	if e.cfg.Image != "" {
		passthrough, err := romfat.OpenPassthrough(e.fs, e.cfg.Image, hook)
		if err != nil {
			return err
		}
		defer passthrough.Close()
		override = passthrough
	}

	dev, err := romfat.Select(flag.Enabled(), synthetic, override)
	if err != nil {
		return err
	}

	in, err := e.fs.Open(c.String("in"))
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := e.fs.OpenFile(c.String("out"), os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	logging.Info(logging.ComponentCLI, "serving",
		"synthetic", dev == romfat.BlockDevice(synthetic),
		"blocks", dev.BlockCount())

	server := msc.NewServer(msc.NewResponder(dev, e.cfg.VendorID, e.cfg.ProductID, e.cfg.Revision))
	err = server.Serve(ctx, in, out)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (e *env) status(c *cli.Context) error {
	enabled, err := e.flag().State()
	if err != nil {
		return err
	}

	state := "disabled"
	if enabled {
		state = "enabled"
	}
	fmt.Fprintf(c.App.Writer, "The synthetic volume is %v (%v).\n", state, e.cfg.FlagFile)
	return nil
}

func (e *env) setFlag(enabled bool) cli.ActionFunc {
	return func(c *cli.Context) error {
		if err := e.flag().SetPersistentFlag(enabled); err != nil {
			return err
		}
		return e.status(c)
	}
}
