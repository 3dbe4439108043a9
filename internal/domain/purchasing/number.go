// internal/domain/purchasing/number.go
package purchasing

import (
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// nextDocumentNumber generates the next sequential document number of the
// form <prefix>-<year>-NNNN, reading existing numbers through the caller's
// transaction so concurrent generators serialize on the open transaction.
func nextDocumentNumber(tx *gorm.DB, model interface{}, column, prefix string, year int) (string, error) {
	pattern := fmt.Sprintf("%s-%d-%%", prefix, year)

	var numbers []string
	if err := tx.Model(model).
		Where(column+" LIKE ?", pattern).
		Pluck(column, &numbers).Error; err != nil {
		return "", fmt.Errorf("failed to scan %s numbers: %w", prefix, err)
	}

	maxSeq := 0
	for _, number := range numbers {
		idx := strings.LastIndex(number, "-")
		if idx < 0 {
			continue
		}
		seq, err := strconv.Atoi(number[idx+1:])
		if err != nil {
			continue
		}
		if seq > maxSeq {
			maxSeq = seq
		}
	}

	return fmt.Sprintf("%s-%d-%04d", prefix, year, maxSeq+1), nil
}
