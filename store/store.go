// Package store defines the external bulb-record collaborator interface
// (§2, §3: "persistent bulb storage is out of scope — the bridge treats
// it as an external store collaborator"). The bridge only ever reads
// through this interface; CRUD and persistence live outside this module.
package store

import (
	"context"

	"github.com/pjlighting/artwiz-bridge/bulb"
)

// Reader loads the current set of configured bulb Records. Implementations
// may read from an HTTP admin API, a file, or anything else — the bridge
// core only depends on this interface.
type Reader interface {
	ReadAll(ctx context.Context) ([]bulb.Record, error)
}
