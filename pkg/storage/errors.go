package storage

import "errors"

var errNoStore = errors.New("storage: underlying store is nil")
