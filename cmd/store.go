package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/parcel-cli/internal/store"
)

// initStore opens and migrates the run archive. It returns nil when the
// archive is disabled.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if st == nil {
		return nil, nil
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}
