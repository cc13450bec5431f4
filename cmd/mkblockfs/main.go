package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	blockfs "github.com/ramjsandal/FUSEFilesystem"
)

func main() {
	app := cli.App{
		Usage: "Create or open a blockfs image file",
		Commands: []*cli.Command{
			{
				Name:      "format",
				Usage:     "Create a fresh image, or verify an existing one",
				Action:    formatImage,
				ArgsUsage: "IMAGE_FILE",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "block-size", Value: blockfs.DefaultGeometry.BlockSize, Usage: "bytes per block"},
					&cli.IntFlag{Name: "num-blocks", Value: blockfs.DefaultGeometry.NumBlocks, Usage: "number of blocks"},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

func formatImage(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return cli.Exit("expected exactly one argument: IMAGE_FILE", 1)
	}

	geo := blockfs.Geometry{
		BlockSize: c.Int("block-size"),
		NumBlocks: c.Int("num-blocks"),
	}

	storage, err := blockfs.Open(c.Args().First(), geo, log.Default())
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return storage.Close()
}
