// Package errors defines the error taxonomy for deck loading and
// rendering: fatal startup errors (missing tables or templates) abort the
// process, while per-card derivation and substitution anomalies degrade
// gracefully and are recorded in a Collector so they stay observable.
package errors

import (
	"fmt"
	"sync"
	"time"
)

// CardError records one non-fatal anomaly while deriving or rendering a
// single card. It never aborts the batch.
type CardError struct {
	Card      string
	Field     string
	Message   string
	Severity  Severity
	Timestamp time.Time
}

// Severity classifies a card anomaly.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Error implements the error interface.
func (ce *CardError) Error() string {
	if ce.Field != "" {
		return fmt.Sprintf("card %q, field %q: %s: %s", ce.Card, ce.Field, ce.Severity, ce.Message)
	}
	return fmt.Sprintf("card %q: %s: %s", ce.Card, ce.Severity, ce.Message)
}

// Collector accumulates card anomalies across a load or render pass.
type Collector struct {
	cardErrors []CardError
	mutex      sync.RWMutex
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		cardErrors: make([]CardError, 0),
	}
}

// Add records a card anomaly, stamping it with the current time.
func (c *Collector) Add(err CardError) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	err.Timestamp = time.Now()
	c.cardErrors = append(c.cardErrors, err)
}

// All returns a copy of every collected anomaly.
func (c *Collector) All() []CardError {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	result := make([]CardError, len(c.cardErrors))
	copy(result, c.cardErrors)
	return result
}

// ByCard returns anomalies recorded for a specific card.
func (c *Collector) ByCard(card string) []CardError {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	var matched []CardError
	for _, err := range c.cardErrors {
		if err.Card == card {
			matched = append(matched, err)
		}
	}
	return matched
}

// Count returns the number of collected anomalies.
func (c *Collector) Count() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.cardErrors)
}

// HasErrors reports whether any anomaly has been collected.
func (c *Collector) HasErrors() bool {
	return c.Count() > 0
}

// Clear drops all collected anomalies. Called at the start of a fresh
// load pass so stale anomalies don't accumulate across reloads.
func (c *Collector) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.cardErrors = c.cardErrors[:0]
}

// ReplaceAll atomically swaps the collected set for errs. Repeated load
// passes over the same deck replace the anomaly set rather than
// appending to it.
func (c *Collector) ReplaceAll(errs []CardError) {
	replaced := make([]CardError, len(errs))
	copy(replaced, errs)

	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.cardErrors = replaced
}
