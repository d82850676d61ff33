package enrollment

import "testing"

func TestPageClamps(t *testing.T) {
	cases := []struct {
		in            Page
		offset, limit int
	}{
		{Page{}, 0, DefaultPageSize},
		{Page{Number: 3, Size: 5}, 10, 5},
		{Page{Number: -2, Size: 500}, 0, MaxPageSize},
		{Page{Number: 2, Size: 0}, DefaultPageSize, DefaultPageSize},
	}
	for _, tc := range cases {
		if got := tc.in.Offset(); got != tc.offset {
			t.Fatalf("%+v offset: want=%d got=%d", tc.in, tc.offset, got)
		}
		if got := tc.in.Limit(); got != tc.limit {
			t.Fatalf("%+v limit: want=%d got=%d", tc.in, tc.limit, got)
		}
	}
}
