package main

import (
	"fmt"
	"os"

	"github.com/dsoprea/go-logging"
	"github.com/jessevdk/go-flags"

	"github.com/6502addict/mdosfs"
)

type rootParameters struct {
	FilesystemFilepath string `short:"f" long:"filesystem-filepath" description:"File-path of MDOS disk image" required:"true"`
	ExtractFilename    string `short:"e" long:"extract-filename" description:"Filename to extract (NAME.EXT)" required:"true"`
	OutputFilepath     string `short:"o" long:"output-filepath" description:"File-path to write to ('-' for STDOUT)" required:"true"`
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

	m, err := mdos.MountFile(rootArguments.FilesystemFilepath, true)
	log.PanicIf(err)

	defer m.Unmount()

	fd, err := m.Files().Open(rootArguments.ExtractFilename, mdos.ORdOnly)
	if err != nil {
		fmt.Printf("File not found.\n")
		os.Exit(2)
	}

	defer m.Files().Close(fd)

	var g *os.File

	if rootArguments.OutputFilepath == "-" {
		g = os.Stdout
	} else {
		var err error

		g, err = os.Create(rootArguments.OutputFilepath)
		log.PanicIf(err)

		defer func() {
			g.Close()
		}()
	}

	buf := make([]byte, 4096)
	total := 0

	for {
		n, err := m.Files().Read(fd, buf)
		log.PanicIf(err)

		if n == 0 {
			break
		}

		_, err = g.Write(buf[:n])
		log.PanicIf(err)

		total += n
	}

	if rootArguments.OutputFilepath != "-" {
		fmt.Printf("(%d) bytes written.\n", total)
	}
}
