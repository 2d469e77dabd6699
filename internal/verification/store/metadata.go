package store

import (
	"encoding/json"
	"fmt"
)

func marshalMetadata(m map[string]string) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal proof metadata: %w", err)
	}
	return raw, nil
}

func unmarshalMetadata(raw []byte, into *map[string]string) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("unmarshal proof metadata: %w", err)
	}
	return nil
}
