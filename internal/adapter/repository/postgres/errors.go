package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/orcatt/crayon-bs/internal/domain"
)

// storeError translates driver-level failures into the domain taxonomy:
// unique violations become ErrConflict, serialization failures, deadlocks
// and timeouts become ErrRetriable. Anything else passes through unchanged.
func storeError(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: %s", domain.ErrConflict, pqErr.Message)
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return fmt.Errorf("%w: %s", domain.ErrRetriable, pqErr.Message)
		case "57014": // query_canceled (statement timeout)
			return fmt.Errorf("%w: %s", domain.ErrRetriable, pqErr.Message)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrRetriable, err)
	}

	return err
}
