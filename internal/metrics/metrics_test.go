package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveImport(t *testing.T) {
	Init()
	Init()

	before := testutil.ToFloat64(importsTotal.WithLabelValues(StatusDuplicate, "api"))
	ObserveImport(StatusDuplicate, "api", 15*time.Millisecond)
	after := testutil.ToFloat64(importsTotal.WithLabelValues(StatusDuplicate, "api"))

	assert.Equal(t, before+1, after)
}
