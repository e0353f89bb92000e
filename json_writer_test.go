package cryptotax

import "testing"

func TestJsonObjectWriter(t *testing.T) {
	tests := []struct {
		name  string
		write func(w *jsonObjectWriter)
		want  string
	}{
		{
			name:  "empty object",
			write: func(w *jsonObjectWriter) {},
			want:  `{}`,
		},
		{
			name: "keeps insertion order",
			write: func(w *jsonObjectWriter) {
				w.Append("b", "hello").Append("a", 1)
			},
			want: `{"b":"hello","a":1}`,
		},
		{
			name: "optional fields",
			write: func(w *jsonObjectWriter) {
				w.Append("a", 0) // a zero value is still appended.
				w.Optional("b", "")
				w.Optional("c", Money{})
				w.Optional("d", []LotMatch(nil))
				w.Optional("e", "hello")
			},
			want: `{"a":0,"e":"hello"}`,
		},
		{
			name: "money is an exact string",
			write: func(w *jsonObjectWriter) {
				w.Optional("zero", eur(0))
				w.Append("third", eur(100).Div(Q(3)))
				w.Append("unset", Money{})
			},
			want: `{"zero":"0","third":"33.3333333333333333","unset":null}`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var w jsonObjectWriter
			tc.write(&w)
			got, err := w.MarshalJSON()
			if err != nil {
				t.Fatalf("MarshalJSON() error = %v", err)
			}
			if string(got) != tc.want {
				t.Errorf("MarshalJSON() = %s, want %s", got, tc.want)
			}
		})
	}
}
