package fixture

import (
	"flag"

	"github.com/roach88/dbtape/internal/config"
)

// Test-binary flag names.
const (
	FlagStore   = "store-db-data"
	FlagMock    = "mock-db-data"
	FlagDataDir = "db-data-dir"
)

var (
	storeFlag   = flag.Bool(FlagStore, false, "record database outcomes into snapshot files")
	mockFlag    = flag.Bool(FlagMock, false, "replay database outcomes from snapshot files instead of connecting")
	dataDirFlag = flag.String(FlagDataDir, "", "root directory of the snapshot files (default $PMSM_DATA_DIR)")
)

// flagOverrides returns the flags given on the command line. Flags left at
// their defaults do not override the environment.
func flagOverrides() config.Overrides {
	var o config.Overrides
	if !flag.Parsed() {
		return o
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case FlagStore:
			v := *storeFlag
			o.Store = &v
		case FlagMock:
			v := *mockFlag
			o.Mock = &v
		case FlagDataDir:
			o.DataDir = *dataDirFlag
		}
	})
	return o
}
