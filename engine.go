package flashee

// defaultBlockSectorCount is BLOCK_SECTOR_NUM from the original source: the
// reference part's geometry (4 KiB sectors, 64 KiB blocks) when a Config
// doesn't override it.
const defaultBlockSectorCount = 16

// Config carries the build-time geometry constants plus the
// caller-supplied base addresses, as ordinary struct fields instead of
// preprocessor constants — Go has no analog for per-translation-unit
// macros, and a struct lets simflash and the test suite exercise more
// than one geometry in the same binary.
type Config struct {
	// SectorSize is the flash's erase granularity in bytes (SECTOR_SIZE).
	SectorSize uint32

	// BlockSectorCount is sectors-per-block (BLOCK_SECTOR_NUM), used by
	// BlockAddr to resolve a block number into a byte address; 0 defaults
	// to 16.
	BlockSectorCount uint16

	IndexStart         uint32
	IndexSwapStart     uint32
	IndexRegionSectors uint16
	IndexAreaSectors   uint16

	DataStart         uint32
	DataSwapStart     uint32
	DataRegionSectors uint16
}

func (c Config) blockSectorCount() uint16 {
	if c.BlockSectorCount == 0 {
		return defaultBlockSectorCount
	}
	return c.BlockSectorCount
}

// Engine is the owned handle the embedder constructs and threads through
// every call: no package-level mutable state, no singletons. It holds
// the flash capability, the declared variable catalog, and the current
// region geometry — all scalar state, no heap allocation beyond what Init
// does once.
type Engine struct {
	flash    Flash
	catalog  Catalog
	geometry regionGeometry
}

// NewEngine returns an unmounted Engine bound to flash and catalog. Call
// Init before Write/Read.
func NewEngine(flash Flash, catalog Catalog) *Engine {
	return &Engine{
		flash:   flash,
		catalog: catalog,
	}
}

// Init performs boot recovery against cfg: idempotent across cold boots,
// it reads both region-status words and routes to normal mount, swap
// resumption, first-format, or reset-to-format.
func (e *Engine) Init(cfg Config) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = wrapPanic(r)
		}
	}()

	return e.mount(cfg)
}

// Catalog returns the engine's declared variable catalog.
func (e *Engine) Catalog() Catalog {
	return e.catalog
}
