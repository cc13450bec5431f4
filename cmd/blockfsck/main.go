package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	blockfs "github.com/ramjsandal/FUSEFilesystem"
)

func main() {
	app := cli.App{
		Usage:     "Mount a blockfs image and report its root statistics",
		ArgsUsage: "IMAGE_FILE",
		Action:    check,
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "block-size", Value: blockfs.DefaultGeometry.BlockSize, Usage: "bytes per block"},
			&cli.IntFlag{Name: "num-blocks", Value: blockfs.DefaultGeometry.NumBlocks, Usage: "number of blocks"},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

func check(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return cli.Exit("expected exactly one argument: IMAGE_FILE", 1)
	}

	geo := blockfs.Geometry{
		BlockSize: c.Int("block-size"),
		NumBlocks: c.Int("num-blocks"),
	}

	storage, err := blockfs.Open(c.Args().First(), geo, log.Default())
	if err != nil {
		return cli.Exit(fmt.Sprintf("consistency check failed: %s", err), 1)
	}
	defer storage.Close()

	stat, err := storage.Stat("/")
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	names, err := storage.List("/")
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	fmt.Printf("root: inode=%d mode=%o size=%d refs=%d entries=%v\n", stat.Inode, stat.Mode, stat.Size, stat.Refs, names)
	return nil
}
