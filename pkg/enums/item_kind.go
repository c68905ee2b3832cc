package enums

import "fmt"

// ItemKind identifies which sellable table an inventory adjustment targets.
type ItemKind string

const (
	ItemKindProduct ItemKind = "product"
	ItemKindVariant ItemKind = "variant"
	ItemKindMisc    ItemKind = "misc"
)

var validItemKinds = []ItemKind{
	ItemKindProduct,
	ItemKindVariant,
	ItemKindMisc,
}

// IsValid reports whether the value is a known ItemKind.
func (k ItemKind) IsValid() bool {
	for _, candidate := range validItemKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseItemKind converts raw input into an ItemKind.
func ParseItemKind(value string) (ItemKind, error) {
	for _, candidate := range validItemKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item kind %q", value)
}
