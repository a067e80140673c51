package errors

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardErrorMessage(t *testing.T) {
	err := &CardError{
		Card:     "Alien Robot Sentry",
		Field:    "Good",
		Message:  "unknown good value",
		Severity: SeverityWarning,
	}

	assert.Contains(t, err.Error(), "Alien Robot Sentry")
	assert.Contains(t, err.Error(), "Good")
	assert.Contains(t, err.Error(), "warning")
}

func TestCollectorAddAndQuery(t *testing.T) {
	collector := NewCollector()
	assert.False(t, collector.HasErrors())

	collector.Add(CardError{Card: "Alpha", Field: "Good", Message: "unknown good", Severity: SeverityWarning})
	collector.Add(CardError{Card: "Beta", Message: "malformed segment", Severity: SeverityInfo})
	collector.Add(CardError{Card: "Alpha", Message: "another", Severity: SeverityError})

	assert.True(t, collector.HasErrors())
	assert.Equal(t, 3, collector.Count())
	assert.Len(t, collector.ByCard("Alpha"), 2)
	assert.Len(t, collector.ByCard("Gamma"), 0)

	all := collector.All()
	require.Len(t, all, 3)
	assert.False(t, all[0].Timestamp.IsZero())

	collector.Clear()
	assert.Equal(t, 0, collector.Count())
}

func TestCollectorConcurrentAccess(t *testing.T) {
	collector := NewCollector()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				collector.Add(CardError{Card: "Concurrent", Message: "anomaly"})
				_ = collector.All()
				_ = collector.Count()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1000, collector.Count())
}

func TestCollectorReplaceAll(t *testing.T) {
	collector := NewCollector()
	collector.Add(CardError{Card: "Stale", Message: "old anomaly"})
	collector.Add(CardError{Card: "Stale", Message: "old anomaly"})

	fresh := []CardError{{Card: "Fresh", Message: "current anomaly"}}
	collector.ReplaceAll(fresh)
	collector.ReplaceAll(fresh)

	// Repeated swaps of the same set keep the count flat.
	assert.Equal(t, 1, collector.Count())
	assert.Equal(t, "Fresh", collector.All()[0].Card)

	collector.ReplaceAll(nil)
	assert.Equal(t, 0, collector.Count())
}

func TestSeverityString(t *testing.T) {
	assert.Equal(t, "info", SeverityInfo.String())
	assert.Equal(t, "warning", SeverityWarning.String())
	assert.Equal(t, "error", SeverityError.String())
	assert.Equal(t, "unknown", Severity(99).String())
}
