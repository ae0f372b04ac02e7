package publish

import "testing"

func TestObjectKey(t *testing.T) {
	cases := []struct {
		prefix string
		local  string
		want   string
	}{
		{"reports", "/tmp/out/index.html", "reports/index.html"},
		{"", "out/latest_rsi.json", "latest_rsi.json"},
		{"rsi/daily", "rsi_data_2026_08_21.json", "rsi/daily/rsi_data_2026_08_21.json"},
	}
	for _, tc := range cases {
		if got := objectKey(tc.prefix, tc.local); got != tc.want {
			t.Fatalf("objectKey(%q, %q) = %q, want %q", tc.prefix, tc.local, got, tc.want)
		}
	}
}

func TestContentTypeFor(t *testing.T) {
	cases := map[string]string{
		"index.html":              "text/html; charset=utf-8",
		"latest_rsi.json":         "application/json",
		"history.CSV":             "text/csv",
		"chart.png":               "image/png",
		"rsi_data_2026_08_21.bak": "application/octet-stream",
	}
	for name, want := range cases {
		if got := contentTypeFor(name); got != want {
			t.Fatalf("contentTypeFor(%s) = %s, want %s", name, got, want)
		}
	}
}
