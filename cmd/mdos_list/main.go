package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dsoprea/go-logging"
	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"

	"github.com/6502addict/mdosfs"
)

type rootParameters struct {
	Filepath       string `short:"f" long:"filepath" description:"File-path of MDOS disk image" required:"true"`
	FilenameFilter string `short:"p" long:"pattern" description:"Filename filter"`
	ShowDetail     bool   `short:"d" long:"detail" description:"Show additional entry detail"`
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

	m, err := mdos.MountFile(rootArguments.Filepath, true)
	log.PanicIf(err)

	defer m.Unmount()

	infos, err := m.List()
	log.PanicIf(err)

	for _, info := range infos {
		fullName := info.Name
		if info.Ext != "" {
			fullName = fmt.Sprintf("%s.%s", info.Name, info.Ext)
		}

		if rootArguments.FilenameFilter != "" {
			isMatched, err := filepath.Match(rootArguments.FilenameFilter, fullName)
			log.PanicIf(err)

			if isMatched != true {
				continue
			}
		}

		if rootArguments.ShowDetail == true {
			fmt.Printf("## %s\n", fullName)
			fmt.Printf("\n")
			fmt.Printf("type: %s\n", info.Type)
			fmt.Printf("rib sector: %d\n", info.RibSector)

			a := info.Attributes
			fmt.Printf("attributes: write-protect=%v delete-protect=%v system=%v contiguous=%v compressed=%v\n",
				a.WriteProtected, a.DeleteProtected, a.System, a.Contiguous, a.Compressed)
			fmt.Printf("\n")
		} else {
			fmt.Printf("%15s  %-8s  %s\n", humanize.Comma(info.Size), info.Type, fullName)
		}
	}
}
