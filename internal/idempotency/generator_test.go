package idempotency

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateKey_Deterministic(t *testing.T) {
	params := map[string]interface{}{
		"subscription_id": "sub-1",
		"period_start":    "2025-01-15T00:00:00Z",
	}

	assert.Equal(t, GenerateKey(ScopeRenewalInvoice, params), GenerateKey(ScopeRenewalInvoice, params))
}

func TestGenerateKey_ScopeAndParamsChangeKey(t *testing.T) {
	params := map[string]interface{}{"subscription_id": "sub-1"}

	assert.NotEqual(t,
		GenerateKey(ScopeRenewalInvoice, params),
		GenerateKey(Scope("other"), params))

	assert.NotEqual(t,
		GenerateKey(ScopeRenewalInvoice, params),
		GenerateKey(ScopeRenewalInvoice, map[string]interface{}{"subscription_id": "sub-2"}))
}
