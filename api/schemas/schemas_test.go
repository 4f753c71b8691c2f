// File: api/schemas/schemas_test.go
package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchRuleSelector(t *testing.T) {
	r := WatchRule{ClassPrefix: "druids_onboarding_billboard", Action: ActionRemove}
	assert.Equal(t, `[class^="druids_onboarding_billboard"]`, r.Selector())
}

func TestWatchRuleValidate(t *testing.T) {
	valid := WatchRule{ClassPrefix: "promo_", Action: ActionRemove}
	require.NoError(t, valid.Validate())

	assert.Error(t, WatchRule{Action: ActionRemove}.Validate())
	assert.Error(t, WatchRule{ClassPrefix: "promo_", Action: "hide"}.Validate())
	assert.Error(t, WatchRule{ClassPrefix: "promo_"}.Validate())
}

func TestVerdictString(t *testing.T) {
	assert.Equal(t, "defer", VerdictDefer.String())
	assert.Equal(t, "allow", VerdictAllow.String())
	assert.Equal(t, "deny", VerdictDeny.String())
	assert.Equal(t, "defer", Verdict(42).String())
}

func TestVerdictNullable(t *testing.T) {
	allow := VerdictAllow.Nullable()
	require.NotNil(t, allow)
	assert.True(t, *allow)

	deny := VerdictDeny.Nullable()
	require.NotNil(t, deny)
	assert.False(t, *deny)

	assert.Nil(t, VerdictDefer.Nullable())
}

func TestVerdictZeroValueDefers(t *testing.T) {
	var v Verdict
	assert.Equal(t, VerdictDefer, v)
}
