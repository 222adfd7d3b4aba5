package types

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Entity id prefixes. Every persisted row carries a prefixed ULID so ids are
// sortable by creation time and self-describing in logs.
const (
	UUID_PREFIX_SUBSCRIPTION         = "sub"
	UUID_PREFIX_SUBSCRIPTION_HISTORY = "hist"
	UUID_PREFIX_INVOICE              = "inv"
	UUID_PREFIX_INVOICE_LINE_ITEM    = "line"
	UUID_PREFIX_TAX_APPLIED          = "tax"
	UUID_PREFIX_PLAN                 = "plan"
	UUID_PREFIX_CUSTOMER             = "cust"
	UUID_PREFIX_WEBHOOK              = "wh"
	UUID_PREFIX_WEBHOOK_DELIVERY     = "whd"
	UUID_PREFIX_WEBHOOK_EVENT        = "evt"
)

// GenerateUUID returns a lowercase ULID.
func GenerateUUID() string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	return strings.ToLower(ulid.MustNew(ulid.Timestamp(time.Now().UTC()), entropy).String())
}

// GenerateUUIDWithPrefix returns a prefixed lowercase ULID, e.g. "sub_01h...".
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}
