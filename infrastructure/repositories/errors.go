package repositories

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"spmodel/domain/listmodel"
)

// QuotaError occurs when a write would grow a storage scope past its limit
type QuotaError struct {
	Scope  string
	Limit  int64
	Needed int64
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("storage scope %q: writing would use %s of %s",
		e.Scope, humanize.Bytes(uint64(e.Needed)), humanize.Bytes(uint64(e.Limit)))
}

func (e *QuotaError) Unwrap() error {
	return listmodel.ErrQuotaExceeded
}
