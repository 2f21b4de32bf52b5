package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/hubgate/hubgate/internal/testutil/testlog"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)

	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("GET", "/health", 200, 12*time.Millisecond)
	RecordProxyAPIRequest("POST", 201, 24*time.Millisecond, true)
	RecordRouteMutation("add", nil)
	RecordRouteMutation("delete", errors.New("boom"))
	RecordReconcilePass(30*time.Millisecond, 1)
}
