package constraint

import "testing"

func TestMergeMROsSimpleDiamond(t *testing.T) {
	object := &Class{Name: "object"}
	a := &Class{Name: "A"}
	b := &Class{Name: "B"}
	d := &Class{Name: "D"}

	merged, err := MergeMROs(d, [][]*Class{{a, object}, {b, object}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantOrder := []string{"D", "A", "B", "object"}
	if len(merged) != len(wantOrder) {
		t.Fatalf("got %d classes, want %d: %v", len(merged), len(wantOrder), merged)
	}
	for i, name := range wantOrder {
		if merged[i].Name != name {
			t.Errorf("position %d: got %s, want %s", i, merged[i].Name, name)
		}
	}
}

func TestMergeMROsIllegalInheritance(t *testing.T) {
	x := &Class{Name: "X"}
	a := &Class{Name: "A"}
	b := &Class{Name: "B"}

	// X's two parent chains order A and B oppositely ([A, B] and [B, A]),
	// so no head can be picked without breaking one of them.
	_, err := MergeMROs(x, [][]*Class{{a, b}, {b, a}})
	if err == nil {
		t.Fatal("expected illegal inheritance error")
	}
}

func TestIsSubsequence(t *testing.T) {
	a := &Class{Name: "A"}
	b := &Class{Name: "B"}
	c := &Class{Name: "C"}
	if !IsSubsequence([]*Class{b}, []*Class{c, b}) {
		t.Error("[B] should be a subsequence of [C, B]")
	}
	if IsSubsequence([]*Class{a}, []*Class{c, b}) {
		t.Error("[A] should not be a subsequence of [C, B]")
	}
}

func TestLongestCommonSubsequence(t *testing.T) {
	c := &Class{Name: "C"}
	d := &Class{Name: "D"}
	b := &Class{Name: "B"}
	lcs := LongestCommonSubsequence([]*Class{c, b}, []*Class{d, b})
	if len(lcs) != 1 || lcs[0].Name != "B" {
		t.Errorf("expected [B], got %v", lcs)
	}
}
