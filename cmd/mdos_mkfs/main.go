package main

import (
	"fmt"
	"os"

	"github.com/dsoprea/go-logging"
	"github.com/jessevdk/go-flags"

	"github.com/6502addict/mdosfs"
)

type rootParameters struct {
	OutputFilepath string `short:"o" long:"output-filepath" description:"File-path of the disk image to create" required:"true"`
	Sides          int    `short:"s" long:"sides" description:"Number of disk sides (1 or 2)" default:"1"`
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

	err = mdos.CreateImage(rootArguments.OutputFilepath, rootArguments.Sides)
	log.PanicIf(err)

	fmt.Printf("Created (%d)-sided MDOS image at (%s).\n", rootArguments.Sides, rootArguments.OutputFilepath)
}
