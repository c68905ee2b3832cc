package types

// JSONMap is a loosely typed JSON object persisted via the gorm json
// serializer.
type JSONMap map[string]any
