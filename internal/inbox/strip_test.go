package inbox

import "testing"

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "tags removed",
			html: "<p>Hi there,</p><p>What does the <b>Pro plan</b> cost?</p>",
			want: "Hi there, What does the Pro plan cost?",
		},
		{
			name: "scripts and styles dropped",
			html: "<style>p{color:red}</style><script>alert(1)</script><p>refund please</p>",
			want: "refund please",
		},
		{
			name: "entities decoded",
			html: "Pricing &amp; plans &lt;2026&gt;",
			want: "Pricing & plans <2026>",
		},
		{
			name: "whitespace collapsed",
			html: "<div>\n  a\n\n  b  </div>",
			want: "a b",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripHTML(tt.html); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
