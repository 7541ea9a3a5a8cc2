package render

import (
	"strings"
	"sync"
	"testing"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name    string
		msg     string
		want    []string
		notWant []string
	}{
		{
			name: "plain message",
			msg:  "Restarting...",
			want: []string{"<title>Restarting...</title>", "<h1>Restarting...</h1>", DefaultServerName},
		},
		{
			name:    "message is escaped",
			msg:     "Page <script>alert(1)</script> not found",
			want:    []string{"&lt;script&gt;"},
			notWant: []string{"<script>"},
		},
	}

	r := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := string(r.Render(tt.msg))
			if !strings.HasPrefix(out, "<!DOCTYPE html>") {
				t.Errorf("expected an HTML document, got %q", out)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("expected %q in output:\n%s", w, out)
				}
			}
			for _, nw := range tt.notWant {
				if strings.Contains(out, nw) {
					t.Errorf("unexpected %q in output:\n%s", nw, out)
				}
			}
		})
	}
}

func TestRender_Concurrent(t *testing.T) {
	r := New()
	want := string(r.Render("Restarting..."))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := string(r.Render("Restarting...")); got != want {
				t.Errorf("concurrent render differs")
			}
		}()
	}
	wg.Wait()
}
