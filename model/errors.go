package model

import "errors"

// ErrRecordNotFound is returned by record sources when no record exists for
// the requested key.
var ErrRecordNotFound = errors.New("record not found")
