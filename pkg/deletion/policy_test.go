package deletion

import (
	"Gallery_Manager/pkg/database"
	"errors"
	"fmt"
	"testing"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
)

func TestRetryPolicyFixedWaitForOrdinaryFailures(t *testing.T) {
	p := newRetryPolicy(3, time.Second)
	p.observe(errors.New("timeout"))
	assert.Equal(t, time.Second, p.NextBackOff())
	p.observe(errors.New("timeout"))
	assert.Equal(t, time.Second, p.NextBackOff())
	p.observe(errors.New("timeout"))
	assert.Equal(t, backoff.Stop, p.NextBackOff())
}

func TestRetryPolicyExponentialWaitAfterConflict(t *testing.T) {
	conflict := fmt.Errorf("entry a: %w", database.ErrVersionConflict)
	p := newRetryPolicy(4, 100*time.Millisecond)

	p.observe(conflict)
	assert.Equal(t, 200*time.Millisecond, p.NextBackOff())
	p.observe(errors.New("timeout"))
	assert.Equal(t, 100*time.Millisecond, p.NextBackOff())
	p.observe(conflict)
	assert.Equal(t, 800*time.Millisecond, p.NextBackOff())
	p.observe(conflict)
	assert.Equal(t, backoff.Stop, p.NextBackOff())
}

func TestRetryPolicyReset(t *testing.T) {
	p := newRetryPolicy(2, time.Millisecond)
	p.observe(database.ErrVersionConflict)
	p.NextBackOff()
	p.Reset()
	assert.Equal(t, time.Millisecond, p.NextBackOff())
	assert.Equal(t, backoff.Stop, p.NextBackOff())
}

func TestRetryPolicyBudgetOfOneNeverRetries(t *testing.T) {
	p := newRetryPolicy(0, time.Millisecond)
	assert.Equal(t, backoff.Stop, p.NextBackOff())
}
