package version

import (
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	t.Parallel()

	got := Get()
	if !strings.HasPrefix(got, "ngx2edge ") {
		t.Fatalf("Get()=%q, want ngx2edge prefix", got)
	}
	if !strings.Contains(got, Short()) {
		t.Fatalf("Get()=%q does not contain Short()=%q", got, Short())
	}
	if !strings.Contains(got, "go1") {
		t.Fatalf("Get()=%q does not mention the go runtime", got)
	}
}
