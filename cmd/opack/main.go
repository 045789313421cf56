// Command opack packs a directory tree into a single SquashFS 4.0 image.
package main

import (
	"fmt"
	"log"
	"os"

	flags "github.com/jessevdk/go-flags"

	"github.com/opacklab/opack/internal/scan"
	"github.com/opacklab/opack/squashfs"
)

type options struct {
	Verbose bool `short:"v" long:"verbose" description:"print each file's path as it is packed"`

	Args struct {
		InputDir   string `positional-arg-name:"input_directory"`
		OutputFile string `positional-arg-name:"output_file"`
	} `positional-args:"yes" required:"yes"`
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = "[-v] input_directory output_file"

	if _, err := parser.ParseArgs(argv); err != nil {
		if flags.WroteHelp(err) {
			return 0
		}
		fmt.Fprintln(os.Stderr, squashfs.ErrUsage)
		return 1
	}

	out, err := os.Create(opts.Args.OutputFile)
	if err != nil {
		log.Printf("opack: cannot create %s: %v", opts.Args.OutputFile, err)
		return 1
	}
	defer out.Close()

	root, err := scan.ScanOS(opts.Args.InputDir)
	if err != nil {
		log.Printf("opack: cannot scan %s: %v", opts.Args.InputDir, err)
		return 1
	}

	var imgOpts []squashfs.Option
	if opts.Verbose {
		imgOpts = append(imgOpts, squashfs.WithProgress(func(path string) {
			fmt.Println(path)
		}))
	}

	img, err := squashfs.NewImage(out, imgOpts...)
	if err != nil {
		log.Printf("opack: %v", err)
		return 1
	}

	if err := img.Pack(root, os.DirFS(opts.Args.InputDir)); err != nil {
		log.Printf("opack: %v", err)
		return 1
	}

	return 0
}
