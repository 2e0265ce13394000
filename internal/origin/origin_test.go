package origin

import (
	"testing"

	"checkoutsdk/internal/metrics"
)

func TestConcat(t *testing.T) {
	cases := [][2]string{
		{"https://h/api", "swap"},
		{"https://h/api/", "/swap"},
		{"https://h/api", "/swap"},
		{"https://h/api/", "swap"},
	}
	for _, c := range cases {
		if got := Concat(c[0], c[1]); got != "https://h/api/swap" {
			t.Fatalf("Concat(%q,%q)=%q", c[0], c[1], got)
		}
	}
}

func TestSameOrigin(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"https://app.example.com", "https://app.example.com/", true},
		{"https://app.example.com:8443", "https://app.example.com/widget", true},
		{"https://APP.example.com", "https://app.example.com", true},
		{"http://app.example.com", "https://app.example.com", false},
		{"https://evil.example.com", "https://app.example.com", false},
		{"https://app.example.com.evil.io", "https://app.example.com", false},
		{"", "https://app.example.com", false},
		{"not a url", "https://app.example.com", false},
	}
	for _, c := range cases {
		if got := SameOrigin(c.a, c.b); got != c.want {
			t.Fatalf("SameOrigin(%q,%q)=%v want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestValidatorAccept(t *testing.T) {
	v := Validator{WidgetURL: "https://widget.example.com/", InstanceID: "tok-1"}
	cases := []struct {
		name   string
		msg    Message
		reason string
	}{
		{"valid", Message{Origin: "https://widget.example.com", Data: []byte(`{"type":"WIDGET_CLOSE","payload":null,"widgetInstanceId":"tok-1"}`)}, ""},
		{"valid on another port", Message{Origin: "https://widget.example.com:3000", Data: []byte(`{"type":"WIDGET_CONFIG_DONE","payload":null,"widgetInstanceId":"tok-1"}`)}, ""},
		{"null data", Message{Origin: "https://widget.example.com", Data: []byte(`null`)}, metrics.DropEmpty},
		{"missing data", Message{Origin: "https://widget.example.com"}, metrics.DropEmpty},
		{"other hostname", Message{Origin: "https://other.example.com", Data: []byte(`{"type":"WIDGET_CLOSE","widgetInstanceId":"tok-1"}`)}, metrics.DropOrigin},
		{"malformed", Message{Origin: "https://widget.example.com", Data: []byte(`{"type":`)}, metrics.DropMalformed},
		{"no instance", Message{Origin: "https://widget.example.com", Data: []byte(`{"type":"WIDGET_CLOSE"}`)}, metrics.DropInstance},
		{"other instance", Message{Origin: "https://widget.example.com", Data: []byte(`{"type":"WIDGET_CLOSE","widgetInstanceId":"tok-2"}`)}, metrics.DropInstance},
		{"unknown type", Message{Origin: "https://widget.example.com", Data: []byte(`{"type":"HELLO","widgetInstanceId":"tok-1"}`)}, metrics.DropUnknownType},
		{"sdk-only type", Message{Origin: "https://widget.example.com", Data: []byte(`{"type":"WIDGET_CLOSE_REQUEST_CONFIRMED","widgetInstanceId":"tok-1"}`)}, metrics.DropUnknownType},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			env, reason := v.Accept(c.msg)
			if reason != c.reason {
				t.Fatalf("reason=%q want %q", reason, c.reason)
			}
			if reason == "" && env.WidgetInstanceID != "tok-1" {
				t.Fatalf("unexpected envelope %+v", env)
			}
		})
	}
}
