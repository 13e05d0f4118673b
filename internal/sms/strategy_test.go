package sms_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpyer/easysms/internal/sms"
)

func TestOrderStrategyIsIdentity(t *testing.T) {
	t.Parallel()
	ids := []string{"aliyun", "tencent", "qiniu"}
	got := sms.OrderStrategy(ids)
	assert.Equal(t, ids, got)

	got[0] = "changed"
	assert.Equal(t, "aliyun", ids[0], "result must not alias the input")
}

func TestRandomStrategyProducesSeveralOrders(t *testing.T) {
	t.Parallel()
	ids := []string{"a", "b", "c", "d"}
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		got := sms.RandomStrategy(ids)
		assert.ElementsMatch(t, ids, got)
		seen[strings.Join(got, ",")] = true
	}
	assert.Greater(t, len(seen), 1)
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids, "input must not be shuffled in place")
}

func TestStrategyByName(t *testing.T) {
	t.Parallel()
	for _, name := range []string{"", "order", "random"} {
		s, err := sms.StrategyByName(name)
		require.NoError(t, err, name)
		assert.Len(t, s([]string{"x", "y"}), 2)
	}

	_, err := sms.StrategyByName("round-robin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "round-robin")
}
