// Package family is a small registry of device-family identifiers used only
// to turn a raw family-id mismatch (§4.4) into a readable log line; the
// validation itself remains a single integer comparison in pkg/image.
package family

import "fmt"

// ID is a device-family identifier as carried in an Image Block's auxiliary
// word when the family-id-present flag is set.
type ID uint32

// Well-known family ids, carried over from the reference RP2040 bootloader
// this protocol was distilled from.
const (
	RP2040 ID = 0xE48BFF56
)

var names = map[ID]string{
	RP2040: "rp2040",
}

// Name returns a human-readable name for id, or a hex fallback if unknown.
func Name(id ID) string {
	if name, ok := names[id]; ok {
		return name
	}
	return fmt.Sprintf("unknown(0x%08x)", uint32(id))
}

// String implements fmt.Stringer so an ID prints its name in log lines.
func (id ID) String() string { return Name(id) }
