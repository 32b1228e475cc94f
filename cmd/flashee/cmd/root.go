// Package cmd holds the flashee multi-subcommand tool's cobra commands.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/donocean/go-flashee"
	"github.com/donocean/go-flashee/config"
	"github.com/donocean/go-flashee/simflash"
)

var (
	manifestFilepath string
	imageFilepath    string
	imageSize        int64
)

// Root builds the top-level flashee command with its shell and simulate
// subcommands attached.
func Root() *cobra.Command {
	root := &cobra.Command{
		Use:   "flashee",
		Short: "Interact with a flash-emulated EEPROM image",
	}

	root.PersistentFlags().StringVarP(&manifestFilepath, "manifest", "m", "", "HuJSON region-geometry manifest")
	root.PersistentFlags().StringVarP(&imageFilepath, "image", "i", "", "File-path of flash image")
	root.PersistentFlags().Int64VarP(&imageSize, "size", "s", 0, "Size of the flash image in bytes")

	root.MarkPersistentFlagRequired("manifest")
	root.MarkPersistentFlagRequired("image")
	root.MarkPersistentFlagRequired("size")

	root.AddCommand(shellCmd(), simulateCmd())

	return root
}

// openEngine loads the manifest, opens the backing image, and mounts an
// Engine over it, returning the Flash too so callers can Close it.
func openEngine() (*flashee.Engine, *simflash.File, error) {
	manifest, err := config.Load(manifestFilepath)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := manifest.ToEngineConfig()
	if err != nil {
		return nil, nil, err
	}

	f, err := simflash.OpenFile(imageFilepath, imageSize, cfg.SectorSize)
	if err != nil {
		return nil, nil, err
	}

	e := flashee.NewEngine(f, manifest.Catalog())

	if err := e.Init(cfg); err != nil {
		f.Close()
		return nil, nil, err
	}

	return e, f, nil
}
