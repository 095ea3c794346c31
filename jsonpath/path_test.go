package jsonpath

import "testing"

type parseTest struct {
	in   string
	want []segment
	err  bool
}

var parseTests = []parseTest{
	{
		in:   "$",
		want: nil,
	},
	{
		in:   "$.f",
		want: []segment{{field: "f"}},
	},
	{
		in:   "$[0]",
		want: []segment{{index: 0, isIndex: true}},
	},
	{
		in: "$.posts[2].title",
		want: []segment{
			{field: "posts"},
			{index: 2, isIndex: true},
			{field: "title"},
		},
	},
	{
		in: "$.'f[3]'[2]",
		want: []segment{
			{field: "f[3]"},
			{index: 2, isIndex: true},
		},
	},
	{
		in:   `$.'it\'s'`,
		want: []segment{{field: "it's"}},
	},
	{
		in:  "posts",
		err: true,
	},
	{
		in:  "$.",
		err: true,
	},
	{
		in:  "$[",
		err: true,
	},
	{
		in:  "$[x]",
		err: true,
	},
	{
		in:  "$[*]",
		err: true,
	},
	{
		in:  "$..f",
		err: true,
	},
	{
		in:  "$.'unterminated",
		err: true,
	},
}

func TestParse(t *testing.T) {
	for _, tt := range parseTests {
		segs, err := parse(tt.in)
		if tt.err {
			if err == nil {
				t.Errorf("parse(%q): expected error, got %v", tt.in, segs)
			}
			continue
		}
		if err != nil {
			t.Errorf("parse(%q): %v", tt.in, err)
			continue
		}
		if len(segs) != len(tt.want) {
			t.Errorf("parse(%q): got %v, want %v", tt.in, segs, tt.want)
			continue
		}
		for i := range segs {
			if segs[i] != tt.want[i] {
				t.Errorf("parse(%q)[%d]: got %+v, want %+v", tt.in, i, segs[i], tt.want[i])
			}
		}
	}
}
