package store

import (
	"github.com/mitchellh/mapstructure"

	"github.com/RWACH777/yasa-tasker-sub000/tools/errs"
)

// DecodeRow maps a row onto a struct using its json tags. Missing fields
// keep their zero value, so "read unset" decodes as unread.
func DecodeRow(row Row, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return errs.Wrap(err)
	}
	if err := dec.Decode(row); err != nil {
		return errs.ErrInvalidEvent.WrapMsg("row decode failed", "err", err)
	}
	return nil
}
