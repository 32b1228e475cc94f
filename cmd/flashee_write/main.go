package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/dsoprea/go-logging"
	"github.com/jessevdk/go-flags"

	"github.com/donocean/go-flashee"
	"github.com/donocean/go-flashee/config"
	"github.com/donocean/go-flashee/simflash"
)

type rootParameters struct {
	ManifestFilepath string `short:"m" long:"manifest-filepath" description:"HuJSON region-geometry manifest" required:"true"`
	ImageFilepath    string `short:"i" long:"image-filepath" description:"File-path of flash image" required:"true"`
	ImageSize        int64  `short:"s" long:"image-size" description:"Size of the flash image in bytes" required:"true"`
	Id               uint16 `short:"d" long:"id" description:"Variable id to write" required:"true"`
	HexValue         string `short:"v" long:"hex-value" description:"Value to write, as a hex string" required:"true"`
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

	buf, err := hex.DecodeString(rootArguments.HexValue)
	log.PanicIf(err)

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

	err = e.Write(flashee.VariableID(rootArguments.Id), buf)
	if err != nil {
		fmt.Printf("write failed: result-code (%d): %v\n", flashee.WriteCode(err), err)
		os.Exit(2)
	}

	fmt.Printf("(%d) bytes written to id (%d)\n", len(buf), rootArguments.Id)
}
