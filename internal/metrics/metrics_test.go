package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordLedgerEntrySplitsDirection(t *testing.T) {
	m := L()
	beforeEarn := testutil.ToFloat64(m.ledgerPoints.WithLabelValues("earn"))
	beforeSpend := testutil.ToFloat64(m.ledgerPoints.WithLabelValues("spend"))

	m.RecordLedgerEntry("visit_qr", 20)
	m.RecordLedgerEntry("points_spent_coupon", -100)

	require.Equal(t, beforeEarn+20, testutil.ToFloat64(m.ledgerPoints.WithLabelValues("earn")))
	require.Equal(t, beforeSpend+100, testutil.ToFloat64(m.ledgerPoints.WithLabelValues("spend")))
}

func TestHandlerExposesLoyaltyMetrics(t *testing.T) {
	L().RecordClaim("success", time.Now())
	L().RecordRedeem("invalid", time.Now())

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	text := string(body)
	require.True(t, strings.Contains(text, `tastemap_coupon_claims_total{result="success"}`))
	require.True(t, strings.Contains(text, `tastemap_coupon_redemptions_total{result="invalid"}`))
	require.True(t, strings.Contains(text, "tastemap_loyalty_operation_duration_seconds_bucket"))
}

func TestNilLoyaltyIsSafe(t *testing.T) {
	var m *Loyalty
	m.RecordClaim("success", time.Now())
	m.RecordLedgerEntry("x", 1)
	m.RecordReferralBonus("registration")
	m.RecordHTTP("/x", "GET", 200, time.Millisecond)
}
