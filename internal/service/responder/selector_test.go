package responder_test

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/linguabot/backend/internal/locale"
	"github.com/zhouzirui/linguabot/backend/internal/service/responder"
)

func newSelector(t *testing.T) (*responder.Selector, *locale.Catalog) {
	t.Helper()
	catalog, err := locale.Load()
	require.NoError(t, err)
	return responder.New(catalog, responder.WithRand(rand.New(rand.NewPCG(1, 2)))), catalog
}

func TestOrderKeyword(t *testing.T) {
	sel, catalog := newSelector(t)
	d := sel.Decide("I want to track my order", "en", false)
	assert.Equal(t, "order", d.Topic)
	assert.Equal(t, catalog.Table("en").Topics["order"].Reply, d.Text)
}

func TestPriorityOrderBeatsPayment(t *testing.T) {
	sel, _ := newSelector(t)
	for i := 0; i < 20; i++ {
		d := sel.Decide("payment failed for my ORDER", "en", false)
		if d.Topic != "order" {
			t.Fatalf("expected order topic to win, got %q", d.Topic)
		}
	}
}

func TestSubstringMatchingIsNotWordBounded(t *testing.T) {
	sel, _ := newSelector(t)
	// "shipping" contains "hi", and greeting is tested first.
	d := sel.Decide("what about shipping", "en", false)
	assert.Equal(t, "greeting", d.Topic)
}

func TestFallbackPool(t *testing.T) {
	sel, catalog := newSelector(t)
	pool := catalog.Table("fr").FallbackReplies
	for i := 0; i < 30; i++ {
		d := sel.Decide("xyz", "fr", false)
		assert.Equal(t, responder.SourceFallback, d.Source)
		assert.Contains(t, pool, d.Text)
	}
}

func TestHumanModeIgnoresKeywords(t *testing.T) {
	sel, catalog := newSelector(t)
	pool := catalog.Table("en").AgentReplies
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		d := sel.Decide("where is my order", "en", true)
		require.Equal(t, responder.SourceAgent, d.Source)
		require.Empty(t, d.Topic)
		assert.Contains(t, pool, d.Text)
		seen[d.Text] = true
	}
	assert.Len(t, seen, len(pool), "every agent reply should be reachable")
}

func TestLocalizedKeywords(t *testing.T) {
	sel, catalog := newSelector(t)
	assert.Equal(t, catalog.Table("zh").Topics["return"].Reply, sel.Select("我想退货", "zh", false))
	assert.Equal(t, catalog.Table("de").Topics["payment"].Reply, sel.Select("Zahlung abgelehnt", "de", false))
}

func TestUnknownLanguageUsesEnglish(t *testing.T) {
	sel, catalog := newSelector(t)
	assert.Equal(t, catalog.Table("en").Topics["hours"].Reply, sel.Select("what are your HOURS", "pt", false))
}

func TestDelayWindow(t *testing.T) {
	sel, _ := newSelector(t)
	for i := 0; i < 100; i++ {
		d := sel.Delay()
		assert.GreaterOrEqual(t, d, time.Second)
		assert.LessOrEqual(t, d, 3*time.Second)
	}

	fixed := responder.New(nil, responder.WithDelayRange(50*time.Millisecond, 10*time.Millisecond))
	assert.Equal(t, 50*time.Millisecond, fixed.Delay())
}
