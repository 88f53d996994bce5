package chunkindex

import (
	"encoding/json"
	"fmt"
	"os"
)

// DocMap records which chunk ids belong to each document. It mirrors the
// vector store's contents so stale chunks can be deleted by id when a
// document is reprocessed with a different chunk count.
type DocMap map[string][]string

// LoadDocMap reads the doc-to-chunks map. A missing or unreadable file
// yields an empty map; the map is advisory and is rebuilt as documents
// are reprocessed, so a lost map degrades staleness cleanup rather than
// failing ingestion.
func LoadDocMap(path string) DocMap {
	data, err := os.ReadFile(path)
	if err != nil {
		return DocMap{}
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return DocMap{}
	}
	out := make(DocMap, len(raw))
	for doc, msg := range raw {
		var ids []string
		if err := json.Unmarshal(msg, &ids); err != nil {
			continue // keep the entries that do parse
		}
		out[doc] = ids
	}
	return out
}

// SaveDocMap writes the map as a single JSON object.
func SaveDocMap(path string, m DocMap) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal doc map: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write doc map: %w", err)
	}
	return nil
}
