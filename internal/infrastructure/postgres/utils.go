package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// pgUniqueViolation SQLSTATE de violación de índice único.
const pgUniqueViolation = "23505"

// isUniqueViolation solo reconoce errores tipados del servidor; el texto del mensaje no cuenta.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
