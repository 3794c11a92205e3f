package payments

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const orderRefPrefix = "ORDER-"

// BuildOrderReference produces the gateway-facing correlation string,
// ORDER-<id>-<creationUnixMillis>. It is never used as a persistence key.
func BuildOrderReference(orderID int64, createdAt time.Time) string {
	return fmt.Sprintf("%s%d-%d", orderRefPrefix, orderID, createdAt.UnixMilli())
}

// ParseOrderReference extracts the numeric order id: strip the prefix,
// split on "-", take the first segment. The caller must keep passing the
// original untruncated string to the gateway.
func ParseOrderReference(ref string) (int64, error) {
	if !strings.HasPrefix(ref, orderRefPrefix) {
		return 0, fmt.Errorf("invalid order reference %q", ref)
	}
	parts := strings.Split(strings.TrimPrefix(ref, orderRefPrefix), "-")
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid order reference %q", ref)
	}
	return id, nil
}
