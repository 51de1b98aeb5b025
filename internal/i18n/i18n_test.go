package i18n

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestCatalogsHaveSameKeys(t *testing.T) {
	for key := range zhCN {
		if _, ok := enUS[key]; !ok {
			t.Fatalf("en-US missing key %s", key)
		}
	}
	for key := range enUS {
		if _, ok := zhCN[key]; !ok {
			t.Fatalf("zh-CN missing key %s", key)
		}
	}
}

func TestTFallsBack(t *testing.T) {
	if got := T("fr-FR", "error.coupon_limit_reached"); got != zhCN["error.coupon_limit_reached"] {
		t.Fatalf("unexpected fallback: %s", got)
	}
	if got := T("en-US", "missing.key"); got != "missing.key" {
		t.Fatalf("expected key echo, got %s", got)
	}
	if got := Sprintf("en", "condition.points_at_least", 40); got != "Earn 40 more points" {
		t.Fatalf("unexpected sprintf: %s", got)
	}
}

func TestResolveLocale(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		url    string
		header string
		want   string
	}{
		{url: "/", header: "", want: DefaultLocale},
		{url: "/", header: "en-GB,en;q=0.9", want: "en-US"},
		{url: "/?locale=zh-TW", header: "en-US", want: "zh-CN"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("GET", tc.url, nil)
		if tc.header != "" {
			c.Request.Header.Set("Accept-Language", tc.header)
		}
		if got := ResolveLocale(c); got != tc.want {
			t.Fatalf("ResolveLocale(%s,%s)=%s want %s", tc.url, tc.header, got, tc.want)
		}
	}
}
