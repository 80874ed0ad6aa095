package domain

import (
	"testing"

	"github.com/radome/sequencescape/testutil"
)

// The domain package carries entities and the state machine only; storage
// drivers and observability stacks stay behind internal packages.
func TestDomainHasNoThirdPartyImports(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.ThirdPartyImportForbidden,
		"pkg/domain must remain stdlib-only so it stays importable everywhere")
}

func TestDomainDoesNotReachIntoInternal(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.InfraImportForbidden("internal"),
		"pkg/domain must not depend on internal packages")
}
