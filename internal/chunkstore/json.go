package chunkstore

import (
	"encoding/json"
	"fmt"
	"os"
)

// readJSON decodes an array of records, as written by pandas
// DataFrame.to_json(orient="records").
func readJSON(path string) ([]record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var recs []record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("decoding json artifact: %w", err)
	}
	return recs, nil
}
