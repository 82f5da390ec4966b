package chunkstore

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	_ "github.com/mattn/go-sqlite3"
)

const selectChunks = `SELECT title, number, start, "end", text, embedding, typeof(embedding)
FROM chunks ORDER BY rowid`

func readSQLite(path string) ([]record, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(selectChunks)
	if err != nil {
		return nil, fmt.Errorf("querying chunks table: %w", err)
	}
	defer rows.Close()

	var recs []record
	for rows.Next() {
		var (
			title, text   sql.NullString
			number        sql.NullFloat64
			start, end    sql.NullFloat64
			embedding     []byte
			embeddingType string
		)
		if err := rows.Scan(&title, &number, &start, &end, &text, &embedding, &embeddingType); err != nil {
			return nil, fmt.Errorf("scanning row %d: %w", len(recs), err)
		}
		vec, err := decodeEmbedding(embedding, embeddingType)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", len(recs), err)
		}
		r := record{Embedding: vec}
		if title.Valid {
			r.Title = &title.String
		}
		if number.Valid {
			r.Number = &number.Float64
		}
		if start.Valid {
			r.Start = &start.Float64
		}
		if end.Valid {
			r.End = &end.Float64
		}
		if text.Valid {
			r.Text = &text.String
		}
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

// decodeEmbedding accepts a JSON array stored as TEXT or packed
// little-endian float32 values stored as BLOB.
func decodeEmbedding(raw []byte, sqlType string) ([]float64, error) {
	switch sqlType {
	case "null":
		return nil, nil
	case "text":
		var vec []float64
		if err := json.Unmarshal(raw, &vec); err != nil {
			return nil, fmt.Errorf("decoding embedding: %w", err)
		}
		return vec, nil
	case "blob":
		if len(raw)%4 != 0 {
			return nil, fmt.Errorf("embedding blob of %d bytes is not a float32 array", len(raw))
		}
		vec := make([]float64, len(raw)/4)
		for i := range vec {
			vec[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:])))
		}
		return vec, nil
	}
	return nil, fmt.Errorf("unsupported embedding column type %q", sqlType)
}
