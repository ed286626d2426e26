package postgres

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
)

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pgerrcode.UniqueViolation
}

// isInvalidText reports input Postgres could not parse into the column type,
// such as a malformed uuid.
func isInvalidText(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pgerrcode.InvalidTextRepresentation
}
