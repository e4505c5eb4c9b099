package repokit

import (
	"context"
	"time"

	perr "constkit/internal/platform/errors"
)

type guarder interface {
	Guard(context.Context) error
}

// Guard runs st.Guard with a default 5s deadline when ctx has none
func Guard(ctx context.Context, name string, st guarder) error {
	if st == nil {
		return perr.Newf(perr.ErrorCodeUnavailable, "%s: nil dependency", name)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	if err := st.Guard(ctx); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "%s guard failed", name)
	}
	return nil
}
