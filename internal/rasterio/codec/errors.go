package codec

import "github.com/pspoerri/rastertiles/internal/errs"

func errShortPayload(codec string, want, got int) error {
	return errs.Wrap(errs.Corrupt, "codec."+codec, "payload too short: want %d bytes, got %d", want, got)
}
