package handler

import "database/sql"

// sqlErrNoRows lets fakes signal not-found the way the real
// repositories do.
var sqlErrNoRows = sql.ErrNoRows
