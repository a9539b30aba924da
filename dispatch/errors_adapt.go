package dispatch

import "github.com/badu/dispatch/errs"

func errInvalid(msg string) *errs.Error    { return errs.InvalidArgument(msg) }
func errNotSupported(msg string) *errs.Error { return errs.NotSupported(msg) }
