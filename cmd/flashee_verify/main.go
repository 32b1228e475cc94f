package main

import (
	"fmt"
	"os"

	"github.com/dsoprea/go-logging"
	"github.com/jessevdk/go-flags"

	"github.com/donocean/go-flashee"
	"github.com/donocean/go-flashee/config"
	"github.com/donocean/go-flashee/simflash"
	"github.com/donocean/go-flashee/verify"
)

type rootParameters struct {
	ManifestFilepath string `short:"m" long:"manifest-filepath" description:"HuJSON region-geometry manifest" required:"true"`
	ImageFilepath    string `short:"i" long:"image-filepath" description:"File-path of flash image" required:"true"`
	ImageSize        int64  `short:"s" long:"image-size" description:"Size of the flash image in bytes" required:"true"`
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

	manifest, err := config.Load(rootArguments.ManifestFilepath)
	log.PanicIf(err)

	cfg, err := manifest.ToEngineConfig()
	log.PanicIf(err)

	f, err := simflash.OpenFile(rootArguments.ImageFilepath, rootArguments.ImageSize, cfg.SectorSize)
	log.PanicIf(err)

	defer f.Close()

	e := flashee.NewEngine(f, manifest.Catalog())

	err = e.Init(cfg)
	log.PanicIf(err)

	snap, err := e.Inspect()
	log.PanicIf(err)

	if err := verify.Check(snap); err != nil {
		fmt.Printf("FAIL\n%v\n", err)
		os.Exit(2)
	}

	fmt.Printf("OK\n")
}
