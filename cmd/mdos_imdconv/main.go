package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dsoprea/go-logging"
	"github.com/jessevdk/go-flags"

	"github.com/6502addict/mdosfs/imdimage"
)

type rootParameters struct {
	InputFilepath  string `short:"i" long:"input-filepath" description:"Source file-path" required:"true"`
	OutputFilepath string `short:"o" long:"output-filepath" description:"Destination file-path" required:"true"`
	ToDsk          bool   `long:"to-dsk" description:"Convert an .IMD image to a flat .DSK image"`
	ToImd          bool   `long:"to-imd" description:"Convert a flat .DSK image to an .IMD image"`
}

var (
	rootArguments = new(rootParameters)
)

func main() {
	defer func() {
		if state := recover(); state != nil {
			err := log.Wrap(state.(error))
			log.PrintError(err)
			os.Exit(-1)
		}
	}()

	p := flags.NewParser(rootArguments, flags.Default)

	_, err := p.Parse()
	if err != nil {
		os.Exit(1)
	}

	if rootArguments.ToDsk == rootArguments.ToImd {
		fmt.Printf("Exactly one of --to-dsk or --to-imd must be given.\n")
		os.Exit(1)
	}

	in, err := os.Open(rootArguments.InputFilepath)
	log.PanicIf(err)

	defer in.Close()

	out, err := os.Create(rootArguments.OutputFilepath)
	log.PanicIf(err)

	defer out.Close()

	if rootArguments.ToDsk == true {
		img, err := imdimage.Decode(in)
		log.PanicIf(err)

		err = imdimage.ImageToDisk(img, out)
		log.PanicIf(err)
	} else {
		comment := fmt.Sprintf("converted from %s\n", strings.TrimSuffix(rootArguments.InputFilepath, ".dsk"))

		img, err := imdimage.DiskToImage(in, comment)
		log.PanicIf(err)

		err = imdimage.Encode(img, out)
		log.PanicIf(err)
	}

	fmt.Printf("Wrote (%s).\n", rootArguments.OutputFilepath)
}
