package oceanbase

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/oceanbase/powerpersona-go/pkg/storage"
)

// vectorToString converts a float64 slice to the OceanBase vector literal format.
// Example: [0.1, 0.2, 0.3] -> "[0.1,0.2,0.3]"
func vectorToString(vector []float64) string {
	if len(vector) == 0 {
		return "[]"
	}

	parts := make([]string, len(vector))
	for i, v := range vector {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}

	return "[" + strings.Join(parts, ",") + "]"
}

// stringToVector parses a vector literal produced by vectorToString.
func stringToVector(s string) ([]float64, error) {
	s = strings.Trim(strings.TrimSpace(s), "[]")
	if s == "" {
		return []float64{}, nil
	}

	parts := strings.Split(s, ",")
	result := make([]float64, len(parts))
	for i, part := range parts {
		val, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, err
		}
		result[i] = val
	}

	return result, nil
}

// generateHash generates an MD5 hash for document text.
func generateHash(content string) string {
	hash := md5.Sum([]byte(content))
	return hex.EncodeToString(hash[:])
}

// documentHash fingerprints every persisted field of doc.
func documentHash(doc *storage.Document) string {
	return generateHash(fmt.Sprintf("%d\x00%s\x00%d\x00%s\x00%s",
		doc.ID, doc.Kind, doc.Timestamp.UTC().UnixNano(), doc.Text, vectorToString(doc.Embedding)))
}

// changedPositions returns, in ascending order, the positions whose hash
// differs from the stored one or that are not stored yet.
func changedPositions(stored map[int]string, hashes []string) []int {
	changed := make([]int, 0)
	for i, h := range hashes {
		if old, ok := stored[i]; !ok || old != h {
			changed = append(changed, i)
		}
	}
	return changed
}
