package standardize

import "strings"

// Mapping confidence levels: exact canonical name, exact alternate name,
// substring overlap in either direction.
const (
	scoreExact     = 100.0
	scoreAlternate = 95.0
	scoreSubstring = 70.0

	// acceptThreshold is the minimum confidence for a mapping to be kept.
	acceptThreshold = 70.0
)

// MapResult is the outcome of header auto-mapping.
type MapResult struct {
	Mapping    map[string]string  `json:"mapping"`
	Confidence map[string]float64 `json:"confidence"`
	Unmapped   []string           `json:"unmapped_columns"`
}

// AutoMap assigns each source header to its best-scoring canonical column.
// Headers are compared uppercased and trimmed; a canonical column is
// claimed by the first header that maps to it.
func AutoMap(headers []string, meta *Metadata) MapResult {
	result := MapResult{
		Mapping:    map[string]string{},
		Confidence: map[string]float64{},
	}
	claimed := map[string]bool{}

	for _, header := range headers {
		needle := strings.ToUpper(strings.TrimSpace(header))
		if needle == "" {
			result.Unmapped = append(result.Unmapped, header)
			continue
		}

		bestName, bestScore := "", 0.0
		for _, name := range meta.Order {
			if claimed[name] {
				continue
			}
			if score := scoreHeader(needle, name, meta.Columns[name]); score > bestScore {
				bestName, bestScore = name, score
			}
		}

		if bestScore >= acceptThreshold {
			result.Mapping[header] = bestName
			result.Confidence[header] = bestScore
			claimed[bestName] = true
		} else {
			result.Unmapped = append(result.Unmapped, header)
		}
	}
	return result
}

// scoreHeader rates how well an uppercased source header fits a canonical
// column.
func scoreHeader(header, canonical string, col Column) float64 {
	if header == strings.ToUpper(canonical) {
		return scoreExact
	}
	for _, alt := range col.AlternateColumns {
		if header == strings.ToUpper(strings.TrimSpace(alt)) {
			return scoreAlternate
		}
	}
	upper := strings.ToUpper(canonical)
	if strings.Contains(header, upper) || strings.Contains(upper, header) {
		return scoreSubstring
	}
	return 0
}
